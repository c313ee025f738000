package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrLoginFailed means the site did not show the logged-in landing
// page after the form post.
var ErrLoginFailed = errors.New("source site login failed")

// exportPathMarker identifies transcript links in the match list.
const exportPathMarker = "/bg/export/"

// SiteConfig describes the source site's crawl surface. ListPath is a
// Sprintf template taking the user id and the days window.
type SiteConfig struct {
	BaseURL   string
	LoginPath string
	ListPath  string
	Welcome   string
}

// DefaultSiteConfig targets the public DailyGammon-style layout.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		BaseURL:   "http://www.dailygammon.com",
		LoginPath: "/bg/login",
		ListPath:  "/bg/user/%s/finished?days=%d",
		Welcome:   "Logged in as",
	}
}

// Client talks to the source site. The session cookie from Login is
// carried by the jar across the listing and download requests.
type Client struct {
	config SiteConfig
	http   *http.Client
}

// NewClient returns a client with a fresh cookie session.
func NewClient(config SiteConfig) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		config: config,
		http: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Login posts the login form and verifies the welcome string on the
// landing page.
func (c *Client) Login(ctx context.Context, user, password string) error {
	form := url.Values{
		"login":    {user},
		"password": {password},
		"save":     {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+c.config.LoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting login form: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}
	if !strings.Contains(string(body), c.config.Welcome) {
		return ErrLoginFailed
	}
	return nil
}

// ListFinished fetches the finished-match page for the user and returns
// the absolute transcript export URLs, in page order.
func (c *Client) ListFinished(ctx context.Context, userID string, days int) ([]string, error) {
	listURL := c.config.BaseURL + fmt.Sprintf(c.config.ListPath, userID, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building list request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching match list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("match list returned %s", resp.Status)
	}

	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("bad base URL: %w", err)
	}
	return exportLinks(resp.Body, base)
}

// exportLinks walks the HTML and collects hrefs pointing at transcript
// exports, resolved against base and de-duplicated in order.
func exportLinks(r io.Reader, base *url.URL) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing match list: %w", err)
	}

	var links []string
	seen := map[string]bool{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !strings.Contains(attr.Val, exportPathMarker) {
					continue
				}
				ref, err := url.Parse(attr.Val)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref).String()
				if !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return links, nil
}

// Download fetches one transcript.
func (c *Client) Download(ctx context.Context, matchURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, matchURL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", matchURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s returned %s", matchURL, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", matchURL, err)
	}
	return string(body), nil
}

// MatchIDFromURL extracts the match id from an export URL; empty when
// the URL is not an export link.
func MatchIDFromURL(u string) string {
	idx := strings.Index(u, exportPathMarker)
	if idx < 0 {
		return ""
	}
	id := u[idx+len(exportPathMarker):]
	if cut := strings.IndexAny(id, "?#"); cut >= 0 {
		id = id[:cut]
	}
	return strings.Trim(id, "/")
}
