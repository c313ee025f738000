// Package analyzer walks parsed matches, scores every played move
// against the engine's ranking, and turns sufficiently bad moves into
// quiz records.
package analyzer

import (
	"context"
	"crypto/rand"
	"log"
	"math/big"
	"sort"
	"strings"

	"github.com/yourusername/bgquiz/pkg/engine"
	"github.com/yourusername/bgquiz/pkg/match"
	"github.com/yourusername/bgquiz/pkg/quiz"
)

// DefaultThreshold is the minimum equity loss that makes a move
// quiz-worthy.
const DefaultThreshold = 0.08

// MoveSource ranks the legal moves for a position. *engine.Engine
// satisfies it; tests substitute a canned source.
type MoveSource interface {
	Analyze(ctx context.Context, req engine.AnalyzeRequest) (*engine.AnalyzeResult, error)
}

// Analyzer detects mistakes in parsed matches.
type Analyzer struct {
	source    MoveSource
	threshold float64
}

// New returns an analyzer using the given move source. A non-positive
// threshold falls back to DefaultThreshold.
func New(source MoveSource, threshold float64) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Analyzer{source: source, threshold: threshold}
}

// Threshold returns the equity-loss cutoff in use.
func (a *Analyzer) Threshold() float64 {
	return a.threshold
}

// AnalyzeMatch replays the match ply by ply, querying the move source
// on each pre-move board. userName restricts detection to one player's
// moves (matched case-insensitively); empty analyzes both sides. emit
// is called once per detected mistake in transcript order; an emit
// error aborts the walk. The returned flag reports whether the engine
// answered at least once.
func (a *Analyzer) AnalyzeMatch(ctx context.Context, m *match.Match, userName string, emit func(quiz.Position) error) (bool, error) {
	engineSeen := false
	wantUser := quiz.NormalizeUser(userName)

	for _, g := range m.Games {
		board := engine.StartingBoard()
		board.MatchLength = m.MatchLength
		board.Score = [2]int{g.Score1, g.Score2}

		// Cube value offered by a pending double; applied on take.
		pendingCube := 0

		for plyIdx, ply := range g.Plies {
			for p := range ply.Halves {
				if err := ctx.Err(); err != nil {
					return engineSeen, err
				}
				player := engine.Player(p)
				half := ply.Halves[p]

				switch half.Kind {
				case match.HalfDouble:
					pendingCube = half.CubeValue
					if pendingCube == 0 {
						pendingCube = board.CubeValue * 2
					}
				case match.HalfTake:
					if pendingCube == 0 {
						pendingCube = board.CubeValue * 2
					}
					board.CubeValue = pendingCube
					board.CubeOwner = p
					pendingCube = 0
				case match.HalfMove:
					name := playerName(m, g, player)
					skip := wantUser != "" && quiz.NormalizeUser(name) != wantUser

					if !skip && half.Dice[0] != 0 {
						rec, available := a.analyzePly(ctx, board, g, plyIdx, player, half, name)
						engineSeen = engineSeen || available
						if rec != nil {
							if err := emit(*rec); err != nil {
								return engineSeen, err
							}
						}
					}
					board.ApplyMoveParts(player, half.Parts)
				}
			}
		}
	}
	return engineSeen, nil
}

// AnalyzeMatchAll collects the match's records sorted by equity loss,
// worst first.
func (a *Analyzer) AnalyzeMatchAll(ctx context.Context, m *match.Match, userName string) ([]quiz.Position, bool, error) {
	var records []quiz.Position
	available, err := a.AnalyzeMatch(ctx, m, userName, func(rec quiz.Position) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, available, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Context.EquityDiff > records[j].Context.EquityDiff
	})
	return records, available, nil
}

// analyzePly scores one played move against the engine. A nil record
// means the ply produced no quiz: engine silent, move not ranked, best
// move played, or loss under the threshold.
func (a *Analyzer) analyzePly(ctx context.Context, board *engine.Board, g *match.Game, plyIdx int, player engine.Player, half match.HalfPly, name string) (*quiz.Position, bool) {
	board.Turn = player
	board.Dice = half.Dice
	gnuID := board.GnuID()

	req := engine.AnalyzeRequest{
		MatchID: gnuID,
		Dice:    &engine.DiceRoll{Die1: half.Dice[0], Die2: half.Dice[1]},
	}
	if pos, _, ok := strings.Cut(gnuID, ":"); ok {
		req.PositionID = pos
	}

	res, err := a.source.Analyze(ctx, req)
	if err != nil {
		log.Printf("analyzer: engine failed on %s: %v", gnuID, err)
		return nil, false
	}
	if !res.EngineAvailable || len(res.Moves) == 0 {
		return nil, res.EngineAvailable
	}

	playedKey := engine.CanonicalKey(engine.FormatParts(half.Parts))
	if playedKey == "" {
		return nil, true
	}

	userIdx := -1
	for i, c := range res.Moves {
		if engine.CanonicalKey(c.Move) == playedKey {
			userIdx = i
			break
		}
	}
	if userIdx <= 0 {
		// Best move played, or the engine never ranked it.
		return nil, true
	}

	bestScore, okBest := res.Moves[0].Score()
	userScore, okUser := res.Moves[userIdx].Score()
	diff := bestScore - userScore
	if !okBest || !okUser || diff < a.threshold {
		return nil, true
	}

	rec := &quiz.Position{
		ID:    quiz.RecordID(gnuID, player.String(), g.Number, plyIdx, name),
		Type:  "move",
		GnuID: gnuID,
		Best:  quiz.Choice{Move: res.Moves[0].Move, Equity: bestScore},
		User: quiz.UserChoice{
			Name:   name,
			Move:   res.Moves[userIdx].Move,
			Equity: userScore,
			Rank:   userIdx + 1,
		},
		HigherSample: sampleHigher(res.Moves, userIdx),
		LowerSample:  sampleLower(res.Moves, userIdx),
		Context: quiz.Context{
			GameNumber: g.Number,
			PlyIndex:   plyIdx,
			Player:     player.String(),
			Dice:       engine.DiceRoll{Die1: half.Dice[0], Die2: half.Dice[1]},
			EquityDiff: diff,
		},
	}
	return rec, true
}

// playerName resolves a player's display name, preferring the game's
// score line over the match metadata.
func playerName(m *match.Match, g *match.Game, p engine.Player) string {
	if p == engine.P1 {
		if g.Player1 != "" {
			return g.Player1
		}
		return m.Player1
	}
	if g.Player2 != "" {
		return g.Player2
	}
	return m.Player2
}

// sampleHigher picks a better-ranked distractor. A player one off the
// best gets the next candidate below instead, since the only better
// move is already shown as the answer.
func sampleHigher(moves []engine.Candidate, userIdx int) *quiz.Choice {
	switch {
	case userIdx == 1:
		if len(moves) > 2 {
			return choiceAt(moves, 2)
		}
	case userIdx >= 2:
		return choiceAt(moves, randIndex(userIdx))
	}
	return nil
}

// sampleLower picks a worse-ranked distractor from the one or two
// candidates just below the player's move.
func sampleLower(moves []engine.Candidate, userIdx int) *quiz.Choice {
	lo := userIdx + 1
	if lo >= len(moves) {
		return nil
	}
	hi := userIdx + 2
	if hi > len(moves)-1 {
		hi = len(moves) - 1
	}
	return choiceAt(moves, lo+randIndex(hi-lo+1))
}

func choiceAt(moves []engine.Candidate, i int) *quiz.Choice {
	score, ok := moves[i].Score()
	if !ok {
		return nil
	}
	return &quiz.Choice{Move: moves[i].Move, Equity: score}
}

// randIndex returns a uniform index in [0, n) from the system CSPRNG.
func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
