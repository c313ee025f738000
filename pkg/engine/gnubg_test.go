package engine

import (
	"context"
	"testing"
)

func TestUnconfiguredEngineUnavailable(t *testing.T) {
	e := NewEngine("")
	res, err := e.Analyze(context.Background(), AnalyzeRequest{MatchID: "x:y"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.EngineAvailable {
		t.Error("unconfigured engine reported available")
	}
	if len(res.Moves) != 0 {
		t.Errorf("unconfigured engine returned %d moves", len(res.Moves))
	}
}

func TestParseHintOutputEquity(t *testing.T) {
	raw := `
    1. Cubeful 2-ply    8/3 6/3                      Eq.:  +0.087
    2. Cubeful 2-ply    24/19 13/10                  Eq.:  +0.021 ( -0.066)
    3. Cubeful 2-ply    13/8 13/10                   Eq.:  -0.035 ( -0.122)
`
	moves := ParseHintOutput(raw)
	if len(moves) != 3 {
		t.Fatalf("parsed %d moves, want 3", len(moves))
	}

	if moves[0].Move != "8/3 6/3" {
		t.Errorf("best move = %q, want %q", moves[0].Move, "8/3 6/3")
	}
	if moves[0].Equity == nil || *moves[0].Equity != 0.087 {
		t.Errorf("best equity = %v, want 0.087", moves[0].Equity)
	}
	if moves[2].Equity == nil || *moves[2].Equity != -0.035 {
		t.Errorf("third equity = %v, want -0.035", moves[2].Equity)
	}
	if len(moves[0].Parts) != 2 {
		t.Errorf("best move parts = %v", moves[0].Parts)
	}
}

func TestParseHintOutputMWC(t *testing.T) {
	raw := `
 1) Rollout  bar/22 13/10         MWC: 51.3%
 2) Rollout  bar/22 24/21         MWC: 49.9%
`
	moves := ParseHintOutput(raw)
	if len(moves) != 2 {
		t.Fatalf("parsed %d moves, want 2", len(moves))
	}
	if moves[0].MWC == nil || *moves[0].MWC != 0.513 {
		t.Errorf("MWC = %v, want 0.513", moves[0].MWC)
	}
	if moves[0].Equity != nil {
		t.Errorf("unexpected equity %v", *moves[0].Equity)
	}
	if moves[0].Move != "bar/22 13/10" {
		t.Errorf("move = %q", moves[0].Move)
	}
}

func TestParseHintOutputRankOrder(t *testing.T) {
	// Out-of-order ranks are sorted.
	raw := `
 2. 13/8 13/10   Eq.: -0.100
 1. 8/3 6/3      Eq.: +0.050
`
	moves := ParseHintOutput(raw)
	if len(moves) != 2 {
		t.Fatalf("parsed %d moves, want 2", len(moves))
	}
	if moves[0].Move != "8/3 6/3" {
		t.Errorf("first move = %q, want the rank-1 line", moves[0].Move)
	}
}

func TestParseHintOutputIgnoresNoise(t *testing.T) {
	raw := `
The best move is 8/3 6/3.
GNU Backgammon  Position ID: 4HPwATDgc/ABMA
`
	if moves := ParseHintOutput(raw); len(moves) != 0 {
		t.Errorf("parsed %d moves from noise", len(moves))
	}
}

func TestCandidateScore(t *testing.T) {
	eq := 0.25
	mwc := 0.6
	c := Candidate{Equity: &eq, MWC: &mwc}
	if v, ok := c.Score(); !ok || v != 0.25 {
		t.Errorf("Score = %v,%v, want equity preferred", v, ok)
	}

	c = Candidate{MWC: &mwc}
	if v, ok := c.Score(); !ok || v != 0.6 {
		t.Errorf("Score = %v,%v, want mwc fallback", v, ok)
	}

	c = Candidate{}
	if _, ok := c.Score(); ok {
		t.Error("Score reported ok with no numeric fields")
	}
}
