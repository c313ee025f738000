package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// Store persists one row per normalized user: the quizzes document, the
// analyzed-matches set and a last-touched timestamp. All mutations are
// transactional read-modify-write, so concurrent writers for the same
// user are linearized by the database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	name             TEXT PRIMARY KEY,
	quizzes          TEXT NOT NULL,
	analyzed_matches TEXT NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);`

// Open opens or creates the database file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening quiz store: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// readUser loads both documents, returning empty defaults for a user
// that has never been touched.
func (s *Store) readUser(ctx context.Context, user string) (Document, AnalyzedMatches, error) {
	var doc Document
	var analyzed AnalyzedMatches

	var qJSON, aJSON string
	row := s.db.QueryRowContext(ctx,
		`SELECT quizzes, analyzed_matches FROM users WHERE name = ?`, NormalizeUser(user))
	switch err := row.Scan(&qJSON, &aJSON); {
	case errors.Is(err, sql.ErrNoRows):
		return doc, analyzed, nil
	case err != nil:
		return doc, analyzed, fmt.Errorf("reading user %q: %w", user, err)
	}

	if err := json.Unmarshal([]byte(qJSON), &doc); err != nil {
		return doc, analyzed, fmt.Errorf("decoding quizzes for %q: %w", user, err)
	}
	if err := json.Unmarshal([]byte(aJSON), &analyzed); err != nil {
		return doc, analyzed, fmt.Errorf("decoding analyzed matches for %q: %w", user, err)
	}
	return doc, analyzed, nil
}

// withUser runs fn over the user's documents inside one transaction and
// writes back whatever fn leaves in them.
func (s *Store) withUser(ctx context.Context, user string, fn func(doc *Document, analyzed *AnalyzedMatches) error) error {
	key := NormalizeUser(user)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var doc Document
	var analyzed AnalyzedMatches

	var qJSON, aJSON string
	row := tx.QueryRowContext(ctx,
		`SELECT quizzes, analyzed_matches FROM users WHERE name = ?`, key)
	switch err := row.Scan(&qJSON, &aJSON); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading user %q: %w", user, err)
	default:
		if err := json.Unmarshal([]byte(qJSON), &doc); err != nil {
			return fmt.Errorf("decoding quizzes for %q: %w", user, err)
		}
		if err := json.Unmarshal([]byte(aJSON), &analyzed); err != nil {
			return fmt.Errorf("decoding analyzed matches for %q: %w", user, err)
		}
	}

	if err := fn(&doc, &analyzed); err != nil {
		return err
	}

	qOut, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding quizzes for %q: %w", user, err)
	}
	aOut, err := json.Marshal(analyzed)
	if err != nil {
		return fmt.Errorf("encoding analyzed matches for %q: %w", user, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (name, quizzes, analyzed_matches, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			quizzes = excluded.quizzes,
			analyzed_matches = excluded.analyzed_matches,
			updated_at = excluded.updated_at`,
		key, string(qOut), string(aOut), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing user %q: %w", user, err)
	}
	return tx.Commit()
}

// LoadQuizzes returns the user's quizzes document, empty for an unknown
// user.
func (s *Store) LoadQuizzes(ctx context.Context, user string) (Document, error) {
	doc, _, err := s.readUser(ctx, user)
	return doc, err
}

// SaveQuizzes merges the incoming document into the stored one. New
// positions are appended; for colliding ids the counters are merged
// (playCount keeps the maximum, correctAnswers the maximum clamped to
// playCount) and the rest of the stored record is kept.
func (s *Store) SaveQuizzes(ctx context.Context, user string, incoming Document) error {
	return s.withUser(ctx, user, func(doc *Document, _ *AnalyzedMatches) error {
		mergeDocuments(doc, incoming)
		return nil
	})
}

func mergeDocuments(existing *Document, incoming Document) {
	index := make(map[string]int, len(existing.Positions))
	for i, p := range existing.Positions {
		index[p.ID] = i
	}

	for _, p := range incoming.Positions {
		i, ok := index[p.ID]
		if !ok {
			existing.Positions = append(existing.Positions, p)
			index[p.ID] = len(existing.Positions) - 1
			continue
		}
		cur := &existing.Positions[i]
		playCount := max(cur.Quiz.PlayCount, p.Quiz.PlayCount)
		correct := min(max(cur.Quiz.CorrectAnswers, p.Quiz.CorrectAnswers), playCount)
		cur.Quiz = Counters{PlayCount: playCount, CorrectAnswers: correct}
	}

	if incoming.Threshold != 0 {
		existing.Threshold = incoming.Threshold
	}
	if incoming.EngineAvailable {
		existing.EngineAvailable = true
	}
}

// RecordResult bumps a quiz's counters after the player answers. It
// returns the updated position, or nil when the id is unknown.
func (s *Store) RecordResult(ctx context.Context, user, id string, wasCorrect bool) (*Position, error) {
	var updated *Position
	err := s.withUser(ctx, user, func(doc *Document, _ *AnalyzedMatches) error {
		for i := range doc.Positions {
			if doc.Positions[i].ID != id {
				continue
			}
			q := &doc.Positions[i].Quiz
			q.PlayCount++
			if wasCorrect {
				q.CorrectAnswers++
			}
			if q.CorrectAnswers > q.PlayCount {
				q.CorrectAnswers = q.PlayCount
			}
			p := doc.Positions[i]
			updated = &p
			return nil
		}
		return nil
	})
	return updated, err
}

// AddAnalyzedMatch marks a match id as processed. The set stays sorted.
func (s *Store) AddAnalyzedMatch(ctx context.Context, user, matchID string) error {
	return s.withUser(ctx, user, func(_ *Document, analyzed *AnalyzedMatches) error {
		if analyzed.Contains(matchID) {
			return nil
		}
		analyzed.Matches = append(analyzed.Matches, matchID)
		sort.Strings(analyzed.Matches)
		return nil
	})
}

// AnalyzedMatches returns the user's processed-match set.
func (s *Store) AnalyzedMatches(ctx context.Context, user string) (AnalyzedMatches, error) {
	_, analyzed, err := s.readUser(ctx, user)
	return analyzed, err
}

// NextQuiz selects the position to ask next: the highest
// equityDiff / (1 + 10·correctAnswers² + 2·playCount), so big mistakes
// surface first and well-learned ones sink. player filters by the exact
// recorded player name; empty matches all. Returns nil when nothing
// qualifies.
func (s *Store) NextQuiz(ctx context.Context, user, player string) (*Position, error) {
	doc, err := s.LoadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}

	best := -1
	bestScore := 0.0
	for i, p := range doc.Positions {
		if player != "" && p.User.Name != player {
			continue
		}
		score := priorityScore(p)
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return nil, nil
	}
	p := doc.Positions[best]
	return &p, nil
}

func priorityScore(p Position) float64 {
	ca := float64(p.Quiz.CorrectAnswers)
	pc := float64(p.Quiz.PlayCount)
	return p.Context.EquityDiff / (1 + 10*ca*ca + 2*pc)
}

// QuizByID looks a position up by id; nil when unknown.
func (s *Store) QuizByID(ctx context.Context, user, id string) (*Position, error) {
	doc, err := s.LoadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, p := range doc.Positions {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

// Players returns the sorted distinct player names appearing in the
// user's quizzes.
func (s *Store) Players(ctx context.Context, user string) ([]string, error) {
	doc, err := s.LoadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	names := []string{}
	for _, p := range doc.Positions {
		if p.User.Name == "" || seen[p.User.Name] {
			continue
		}
		seen[p.User.Name] = true
		names = append(names, p.User.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Stats summarizes the user's quiz history.
type Stats struct {
	TotalQuizzes   int        `json:"totalQuizzes"`
	TotalAttempts  int        `json:"totalAttempts"`
	TotalCorrect   int        `json:"totalCorrect"`
	MeanAccuracy   float64    `json:"meanAccuracy"`
	AccuracyStdDev float64    `json:"accuracyStdDev"`
	WorstQuizzes   []Position `json:"worstQuizzes"`
}

// Stats computes totals plus the three positions the player keeps
// getting wrong: lowest correct/playCount among the played ones, with
// the more-played position first on ties.
func (s *Store) Stats(ctx context.Context, user string) (*Stats, error) {
	doc, err := s.LoadQuizzes(ctx, user)
	if err != nil {
		return nil, err
	}

	st := &Stats{TotalQuizzes: len(doc.Positions), WorstQuizzes: []Position{}}

	var played []Position
	var accuracies []float64
	for _, p := range doc.Positions {
		st.TotalAttempts += p.Quiz.PlayCount
		st.TotalCorrect += p.Quiz.CorrectAnswers
		if p.Quiz.PlayCount > 0 {
			played = append(played, p)
			accuracies = append(accuracies, accuracy(p))
		}
	}

	if len(accuracies) > 0 {
		st.MeanAccuracy = stat.Mean(accuracies, nil)
	}
	if len(accuracies) > 1 {
		st.AccuracyStdDev = stat.StdDev(accuracies, nil)
	}

	sort.SliceStable(played, func(i, j int) bool {
		ai, aj := accuracy(played[i]), accuracy(played[j])
		if ai != aj {
			return ai < aj
		}
		return played[i].Quiz.PlayCount > played[j].Quiz.PlayCount
	})
	if len(played) > 3 {
		played = played[:3]
	}
	st.WorstQuizzes = append(st.WorstQuizzes, played...)

	return st, nil
}

func accuracy(p Position) float64 {
	return float64(p.Quiz.CorrectAnswers) / float64(p.Quiz.PlayCount)
}
