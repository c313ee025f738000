// Package engine provides the board model, move notation handling and the
// driver for the external gnubg analysis engine.
package engine

import (
	"fmt"
	"strings"

	"github.com/yourusername/bgquiz/internal/positionid"
)

// Player identifies a side.
type Player int

const (
	P1 Player = 0
	P2 Player = 1
)

// Opponent returns the other side.
func (p Player) Opponent() Player {
	return 1 - p
}

// String returns the wire label for the player.
func (p Player) String() string {
	if p == P2 {
		return "player2"
	}
	return "player1"
}

// Board is the full game state: checker slots for both players plus the
// match context needed to build a gnubg ID.
//
// Each player's slots are indexed from that player's own perspective:
// slot 0 is borne off, 1..24 are board points (1 is the innermost home
// point), 25 is the bar.
type Board struct {
	Slots       [2]positionid.Slots
	Turn        Player
	Dice        [2]int // 0,0 when not rolled
	CubeValue   int    // 1, 2, 4, ...
	CubeOwner   int    // -1 = centered, 0 = player 1, 1 = player 2
	MatchLength int    // 0 = money game
	Score       [2]int
}

// StartingBoard returns the standard starting position: each player has
// 2 on the 24-point, 5 on the 13-point, 3 on the 8-point and 5 on the
// 6-point, cube centered at 1, player 1 to move.
func StartingBoard() *Board {
	b := &Board{
		Turn:      P1,
		CubeValue: 1,
		CubeOwner: -1,
	}
	for i := 0; i < 2; i++ {
		b.Slots[i][6] = 5
		b.Slots[i][8] = 3
		b.Slots[i][13] = 5
		b.Slots[i][24] = 2
	}
	return b
}

// ApplyMoveParts plays the parts for the given player, in order. A hit on
// a board point sends the opponent's checker to the opponent's bar. Parts
// with out-of-range indices or an empty source slot are skipped.
func (b *Board) ApplyMoveParts(player Player, parts []MovePart) {
	mine := &b.Slots[player]
	opp := &b.Slots[player.Opponent()]

	for _, p := range parts {
		if p.From < 1 || p.From > 25 || p.To < 0 || p.To > 24 {
			continue
		}
		if mine[p.From] <= 0 {
			continue
		}
		mine[p.From]--
		if p.Hit && p.To >= 1 && p.To <= 24 {
			// The mover's destination point is 25-To from the
			// opponent's perspective.
			if opp[25-p.To] > 0 {
				opp[25-p.To]--
				opp[25]++
			}
		}
		mine[p.To]++
	}
}

// SwapSides exchanges the two players' checkers and flips the turn,
// cube owner and score, giving the same position seen from the other
// side of the table.
func (b *Board) SwapSides() {
	b.Slots[0], b.Slots[1] = b.Slots[1], b.Slots[0]
	b.Turn = b.Turn.Opponent()
	if b.CubeOwner >= 0 {
		b.CubeOwner = 1 - b.CubeOwner
	}
	b.Score[0], b.Score[1] = b.Score[1], b.Score[0]
}

// PipCount returns the player's pip count: checkers on the bar count 25
// pips, checkers on point n count n.
func (b *Board) PipCount(player Player) int {
	pips := 0
	for j := 1; j <= 25; j++ {
		pips += j * b.Slots[player][j]
	}
	return pips
}

// Valid reports whether both sides hold exactly 15 checkers.
func (b *Board) Valid() bool {
	return positionid.CheckSlots(b.Slots)
}

// PositionID encodes the checker slots, side to move first.
func (b *Board) PositionID() string {
	return positionid.EncodePosition(b.Slots, int(b.Turn))
}

// MatchID encodes the match context.
func (b *Board) MatchID() string {
	return positionid.EncodeMatch(positionid.MatchInfo{
		CubeValue:   b.CubeValue,
		CubeOwner:   b.CubeOwner,
		Roller:      int(b.Turn),
		Dice:        b.Dice,
		MatchLength: b.MatchLength,
		Score:       b.Score,
	})
}

// GnuID returns "positionID:matchID", the engine's query key.
func (b *Board) GnuID() string {
	return b.PositionID() + ":" + b.MatchID()
}

// BoardFromGnuID decodes a combined "positionID:matchID" string. The match
// half is decoded first so the roller bit can steer the distribution of
// the position bits.
func BoardFromGnuID(id string) (*Board, error) {
	posPart, matchPart, ok := strings.Cut(id, ":")
	if !ok {
		return nil, fmt.Errorf("gnu ID %q: missing ':' separator", id)
	}

	mi, err := positionid.DecodeMatch(matchPart)
	if err != nil {
		return nil, fmt.Errorf("gnu ID %q: %w", id, err)
	}

	slots, err := positionid.DecodePosition(posPart, mi.Roller)
	if err != nil {
		return nil, fmt.Errorf("gnu ID %q: %w", id, err)
	}

	return &Board{
		Slots:       slots,
		Turn:        Player(mi.Roller),
		Dice:        mi.Dice,
		CubeValue:   mi.CubeValue,
		CubeOwner:   mi.CubeOwner,
		MatchLength: mi.MatchLength,
		Score:       mi.Score,
	}, nil
}
