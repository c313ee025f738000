// Package match parses backgammon match transcripts in the
// Jellyfish/gnubg MAT format.
package match

import (
	"github.com/yourusername/bgquiz/pkg/engine"
)

// Match is a parsed transcript.
type Match struct {
	MatchLength int // 0 = money game / unknown
	Player1     string
	Player2     string
	Site        string
	Event       string
	Date        string
	Games       []*Game
	Winner      int // 0 = player 1, 1 = player 2, -1 = unknown
}

// Game is one game of the match. Scores are the standings at the start
// of the game.
type Game struct {
	Number    int
	Player1   string
	Player2   string
	Score1    int
	Score2    int
	Plies     []Ply
	Winner    int // 0 = player 1, 1 = player 2, -1 = unfinished
	Points    int
	WinsMatch bool
}

// Ply is one numbered transcript row: a half-ply per player. A player
// who did not act in the row gets a HalfNoMove half.
type Ply struct {
	Number int
	Halves [2]HalfPly
}

// HalfKind classifies one player's action within a ply.
type HalfKind int

const (
	HalfNoMove HalfKind = iota
	HalfMove
	HalfDouble
	HalfTake
	HalfDrop
	HalfWin
	HalfUnknown
)

// HalfPly is a single player's action. Which fields are meaningful
// depends on Kind: Dice and Parts for HalfMove (empty Parts is a forced
// pass), CubeValue for HalfDouble, Points for HalfWin, Text for
// HalfUnknown and HalfWin.
type HalfPly struct {
	Kind      HalfKind
	Dice      [2]int
	Parts     []engine.MovePart
	CubeValue int
	Points    int
	Text      string
}

// IsDoubles reports whether a HalfMove half rolled a doublet.
func (h HalfPly) IsDoubles() bool {
	return h.Kind == HalfMove && h.Dice[0] == h.Dice[1] && h.Dice[0] != 0
}
