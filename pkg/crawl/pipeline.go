package crawl

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/bgquiz/pkg/analyzer"
	"github.com/yourusername/bgquiz/pkg/match"
	"github.com/yourusername/bgquiz/pkg/quiz"
)

// Pipeline phases, in order of appearance.
const (
	PhaseLoginAndList = "login_and_list"
	PhaseFoundLinks   = "found_links"
	PhaseProcessing   = "processing"
	PhaseDone         = "done"
)

// Progress is the payload of a progress event.
type Progress struct {
	Phase            string `json:"phase"`
	MatchesTotal     int    `json:"matchesTotal"`
	ProcessedMatches int    `json:"processedMatches"`
	QuizzesAdded     int    `json:"quizzesAdded"`
	LastPositionID   string `json:"lastPositionId,omitempty"`
}

// Done is the payload of a done event. Errors lists matches that were
// skipped without aborting the crawl.
type Done struct {
	Added        int      `json:"added"`
	Total        int      `json:"total"`
	MatchesTotal int      `json:"matchesTotal"`
	Errors       []string `json:"errors,omitempty"`
}

// SiteClient is the crawl boundary against the source site. *Client
// satisfies it.
type SiteClient interface {
	Login(ctx context.Context, user, password string) error
	ListFinished(ctx context.Context, userID string, days int) ([]string, error)
	Download(ctx context.Context, matchURL string) (string, error)
}

// QuizStore is what the pipeline needs from the per-user store.
// *quiz.Store satisfies it.
type QuizStore interface {
	LoadQuizzes(ctx context.Context, user string) (quiz.Document, error)
	SaveQuizzes(ctx context.Context, user string, doc quiz.Document) error
	AnalyzedMatches(ctx context.Context, user string) (quiz.AnalyzedMatches, error)
	AddAnalyzedMatch(ctx context.Context, user, matchID string) error
}

// Pipeline crawls the source site and turns new matches into persisted
// quizzes.
type Pipeline struct {
	site     SiteClient
	store    QuizStore
	analyzer *analyzer.Analyzer
}

// NewPipeline wires a crawl pipeline.
func NewPipeline(site SiteClient, store QuizStore, a *analyzer.Analyzer) *Pipeline {
	return &Pipeline{site: site, store: store, analyzer: a}
}

// Run executes one crawl. Per-match failures (download, parse) are
// recorded and skipped; storage failures abort the job. Every emitted
// quiz is saved immediately, and a match id is marked analyzed only
// after its walk completes, so a crash re-processes at most one match
// and record ids keep that idempotent.
func (p *Pipeline) Run(ctx context.Context, payload Payload, onProgress func(Progress)) (*Done, error) {
	user := payload.StorageKey
	userID := payload.UserID
	if userID == "" {
		userID = payload.Credentials.User
	}

	onProgress(Progress{Phase: PhaseLoginAndList})

	doc, err := p.store.LoadQuizzes(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("loading quizzes: %w", err)
	}
	analyzed, err := p.store.AnalyzedMatches(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("loading analyzed matches: %w", err)
	}
	existing := len(doc.Positions)

	seen := make(map[string]bool, existing)
	for _, pos := range doc.Positions {
		seen[pos.ID] = true
	}

	if err := p.site.Login(ctx, payload.Credentials.User, payload.Credentials.Password); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	urls, err := p.site.ListFinished(ctx, userID, payload.Days)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}

	var fresh []string
	for _, u := range urls {
		if id := MatchIDFromURL(u); id != "" && !analyzed.Contains(id) {
			fresh = append(fresh, u)
		}
	}

	progress := Progress{Phase: PhaseFoundLinks, MatchesTotal: len(fresh)}
	onProgress(progress)
	progress.Phase = PhaseProcessing

	done := &Done{MatchesTotal: len(fresh)}

	for _, matchURL := range fresh {
		matchID := MatchIDFromURL(matchURL)

		text, err := p.site.Download(ctx, matchURL)
		if err != nil {
			log.Printf("crawl: download %s: %v", matchURL, err)
			done.Errors = append(done.Errors, fmt.Sprintf("%s: %v", matchID, err))
			continue
		}
		m, err := match.ImportMAT(strings.NewReader(text))
		if err != nil {
			log.Printf("crawl: parse %s: %v", matchID, err)
			done.Errors = append(done.Errors, fmt.Sprintf("%s: %v", matchID, err))
			continue
		}

		_, err = p.analyzer.AnalyzeMatch(ctx, m, payload.Credentials.User, func(rec quiz.Position) error {
			ensureRecord(&rec)
			if seen[rec.ID] {
				return nil
			}
			inc := quiz.Document{
				EngineAvailable: true,
				Threshold:       p.analyzer.Threshold(),
				Positions:       []quiz.Position{rec},
			}
			if err := p.store.SaveQuizzes(ctx, user, inc); err != nil {
				return fmt.Errorf("saving quiz %s: %w", rec.ID, err)
			}
			seen[rec.ID] = true
			done.Added++
			progress.QuizzesAdded = done.Added
			progress.LastPositionID = rec.GnuID
			onProgress(progress)
			return nil
		})
		if err != nil {
			return nil, err
		}

		if err := p.store.AddAnalyzedMatch(ctx, user, matchID); err != nil {
			return nil, fmt.Errorf("marking %s analyzed: %w", matchID, err)
		}

		progress.ProcessedMatches++
		onProgress(progress)
	}

	done.Total = existing + done.Added
	progress.Phase = PhaseDone
	onProgress(progress)
	return done, nil
}

// ensureRecord fills defaults the store relies on.
func ensureRecord(rec *quiz.Position) {
	if rec.Type == "" {
		rec.Type = "move"
	}
	if rec.Quiz.CorrectAnswers > rec.Quiz.PlayCount {
		rec.Quiz.CorrectAnswers = rec.Quiz.PlayCount
	}
}
