// Package quiz defines mistake-quiz records and their per-user
// persistent store.
package quiz

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yourusername/bgquiz/pkg/engine"
)

// Choice is a move with its engine score, shown as a quiz option.
type Choice struct {
	Move   string  `json:"move"`
	Equity float64 `json:"equity"`
}

// UserChoice is the move the player actually made. Rank is 1-based
// within the engine's candidate list.
type UserChoice struct {
	Name   string  `json:"name"`
	Move   string  `json:"move"`
	Equity float64 `json:"equity"`
	Rank   int     `json:"rank"`
}

// Context pins a record to its place in the source match.
type Context struct {
	GameNumber int             `json:"gameNumber"`
	PlyIndex   int             `json:"plyIndex"`
	Player     string          `json:"player"` // "player1" or "player2"
	Dice       engine.DiceRoll `json:"dice"`
	EquityDiff float64         `json:"equityDiff"`
}

// Counters tracks how the player has done on a quiz so far.
// CorrectAnswers never exceeds PlayCount.
type Counters struct {
	PlayCount      int `json:"playCount"`
	CorrectAnswers int `json:"correctAnswers"`
}

// Position is one quiz record: a board the player misplayed, the
// engine's best answer, and sampled distractors.
type Position struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"` // always "move"
	GnuID        string     `json:"gnuId"`
	Best         Choice     `json:"best"`
	User         UserChoice `json:"user"`
	HigherSample *Choice    `json:"higherSample,omitempty"`
	LowerSample  *Choice    `json:"lowerSample,omitempty"`
	Context      Context    `json:"context"`
	Quiz         Counters   `json:"quiz"`
}

// Document is the per-user quizzes payload.
type Document struct {
	EngineAvailable bool       `json:"engineAvailable"`
	Threshold       float64    `json:"threshold"`
	Positions       []Position `json:"positions"`
}

// AnalyzedMatches is the per-user set of already-processed match ids,
// kept sorted.
type AnalyzedMatches struct {
	Matches []string `json:"matches"`
}

// Contains reports whether the match id has already been processed.
func (a AnalyzedMatches) Contains(matchID string) bool {
	for _, id := range a.Matches {
		if id == matchID {
			return true
		}
	}
	return false
}

// RecordID derives the content address of a quiz record. Equal inputs
// always produce equal ids, which is what makes re-analysis idempotent.
func RecordID(gnuID, player string, gameNumber, plyIndex int, userName string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d|%s", gnuID, player, gameNumber, plyIndex, userName)))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeUser maps a username to its storage key.
func NormalizeUser(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
