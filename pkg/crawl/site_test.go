package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func newTestSite(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("login") == "alice" && r.FormValue("password") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "tok-1"})
			fmt.Fprint(w, "<html>Logged in as alice</html>")
			return
		}
		fmt.Fprint(w, "<html>Login incorrect</html>")
	})
	mux.HandleFunc("GET /user/alice/finished", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err != nil || c.Value != "tok-1" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a href="/bg/game/1">board</a>
			<a href="/bg/export/101">match 101</a>
			<a href="/bg/export/202">match 202</a>
			<a href="/bg/export/101">match 101 again</a>
		</body></html>`)
	})
	mux.HandleFunc("GET /bg/export/101", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, " 7 point match\n")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(SiteConfig{
		BaseURL:   srv.URL,
		LoginPath: "/login",
		ListPath:  "/user/%s/finished?days=%d",
		Welcome:   "Logged in as",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, client
}

func TestClientLoginListDownload(t *testing.T) {
	srv, client := newTestSite(t)
	ctx := context.Background()

	if err := client.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// The session cookie from login must carry over to the listing.
	urls, err := client.ListFinished(ctx, "alice", 30)
	if err != nil {
		t.Fatalf("ListFinished: %v", err)
	}
	want := []string{srv.URL + "/bg/export/101", srv.URL + "/bg/export/202"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("ListFinished = %v, want %v", urls, want)
	}

	text, err := client.Download(ctx, urls[0])
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !strings.Contains(text, "point match") {
		t.Errorf("downloaded transcript = %q", text)
	}
}

func TestClientLoginRejected(t *testing.T) {
	_, client := newTestSite(t)

	err := client.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrLoginFailed) {
		t.Errorf("err = %v, want ErrLoginFailed", err)
	}
}

func TestClientDownloadMissing(t *testing.T) {
	srv, client := newTestSite(t)

	if _, err := client.Download(context.Background(), srv.URL+"/bg/export/999"); err == nil {
		t.Error("Download of missing transcript succeeded")
	}
}

func TestExportLinksRelative(t *testing.T) {
	base, _ := url.Parse("http://example.test")
	page := `<html><body>
		<a href="/bg/export/7">seven</a>
		<a href="http://example.test/bg/export/8?fmt=mat">eight</a>
		<a href="/bg/board/7">not an export</a>
	</body></html>`

	links, err := exportLinks(strings.NewReader(page), base)
	if err != nil {
		t.Fatalf("exportLinks: %v", err)
	}
	want := []string{
		"http://example.test/bg/export/7",
		"http://example.test/bg/export/8?fmt=mat",
	}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("exportLinks = %v, want %v", links, want)
	}
}

func TestMatchIDFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"http://x/bg/export/123", "123"},
		{"http://x/bg/export/123/", "123"},
		{"http://x/bg/export/123?fmt=mat", "123"},
		{"http://x/bg/export/123#top", "123"},
		{"http://x/bg/board/123", ""},
	}
	for _, c := range cases {
		if got := MatchIDFromURL(c.url); got != c.want {
			t.Errorf("MatchIDFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
