package engine

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Analysis script executed inside gnubg's embedded Python. It reads the
// request from GNUBG_INPUT_JSON and writes the response to
// GNUBG_OUTPUT_JSON.
//
//go:embed analyze_position.py
var analysisScript string

// DiceRoll is a rolled pair.
type DiceRoll struct {
	Die1 int `json:"die1"`
	Die2 int `json:"die2"`
}

// AnalyzeRequest asks the engine to rank the legal moves for a position.
// MatchID is the combined "positionID:matchID" key; Dice overrides the
// dice encoded there.
type AnalyzeRequest struct {
	MatchID       string    `json:"matchId"`
	PositionID    string    `json:"positionId,omitempty"`
	PositionIndex *int      `json:"positionIndex,omitempty"`
	Dice          *DiceRoll `json:"dice,omitempty"`
}

// Candidate is one ranked move from the engine, best first. Equity is
// preferred for ranking; MWC (match-winning chance, 0..1) is kept when
// the engine reports it.
type Candidate struct {
	Move   string     `json:"move"`
	Parts  []MovePart `json:"moves,omitempty"`
	Equity *float64   `json:"equity,omitempty"`
	MWC    *float64   `json:"mwc,omitempty"`
}

// Score returns the ranking value for the candidate and whether one is
// available.
func (c Candidate) Score() (float64, bool) {
	if c.Equity != nil {
		return *c.Equity, true
	}
	if c.MWC != nil {
		return *c.MWC, true
	}
	return 0, false
}

// AnalyzeResult is the engine's answer. EngineAvailable is false when the
// executable is unconfigured or failed to launch; callers treat that as
// "skip".
type AnalyzeResult struct {
	EngineAvailable bool        `json:"engineAvailable"`
	Moves           []Candidate `json:"moves"`
	Raw             string      `json:"raw,omitempty"`
}

// engineResponse is the JSON document the bundled script writes.
type engineResponse struct {
	EngineAvailable bool           `json:"engineAvailable"`
	Moves           []rawCandidate `json:"moves"`
	RawHint         string         `json:"rawHint,omitempty"`
	Error           string         `json:"error,omitempty"`
}

type rawCandidate struct {
	Move   string   `json:"move"`
	Equity *float64 `json:"equity,omitempty"`
	MWC    *float64 `json:"mwc,omitempty"`
}

// Engine invokes the external gnubg executable once per position. The
// executable is not safe to run concurrently on the target host, so all
// invocations are serialized through a single mutex.
type Engine struct {
	path string
	mu   sync.Mutex
}

// NewEngine returns an engine bound to the given executable path. An
// empty path yields a permanently unavailable engine.
func NewEngine(path string) *Engine {
	return &Engine{path: path}
}

// EngineFromEnv builds an engine from the GNUBG_PATH environment variable.
func EngineFromEnv() *Engine {
	return NewEngine(os.Getenv("GNUBG_PATH"))
}

// Available reports whether an executable is configured.
func (e *Engine) Available() bool {
	return e.path != ""
}

// Analyze runs the engine for one position and returns the ranked
// candidate moves. Launch failures are reported as EngineAvailable=false
// rather than an error so callers can skip the ply and continue.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	if !e.Available() {
		return &AnalyzeResult{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dir, err := os.MkdirTemp("", "bgquiz-gnubg-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	scriptPath := filepath.Join(dir, "analyze_position.py")
	inputPath := filepath.Join(dir, "input.json")
	outputPath := filepath.Join(dir, "output.json")

	if err := os.WriteFile(scriptPath, []byte(analysisScript), 0o600); err != nil {
		return nil, fmt.Errorf("writing analysis script: %w", err)
	}
	inputJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding engine request: %w", err)
	}
	if err := os.WriteFile(inputPath, inputJSON, 0o600); err != nil {
		return nil, fmt.Errorf("writing engine request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.path, "-t", "-q", "-p", scriptPath)
	cmd.Env = append(os.Environ(),
		"GNUBG_INPUT_JSON="+inputPath,
		"GNUBG_OUTPUT_JSON="+outputPath,
	)

	stdout, runErr := cmd.CombinedOutput()
	if runErr != nil && len(stdout) == 0 {
		log.Printf("gnubg: launch failed: %v", runErr)
		return &AnalyzeResult{}, nil
	}

	result := &AnalyzeResult{EngineAvailable: true, Raw: string(stdout)}

	if data, err := os.ReadFile(outputPath); err == nil {
		var resp engineResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			result.EngineAvailable = resp.EngineAvailable
			if resp.RawHint != "" {
				result.Raw = resp.RawHint
			}
			for _, rc := range resp.Moves {
				result.Moves = append(result.Moves, normalizeCandidate(rc))
			}
		}
	}

	// The script may have produced nothing structured; fall back to
	// scraping the hint lines from stdout.
	if len(result.Moves) == 0 {
		result.Moves = ParseHintOutput(result.Raw)
	}

	return result, nil
}

// normalizeCandidate expands the move text into parts and scales a
// percentage MWC into the 0..1 range.
func normalizeCandidate(rc rawCandidate) Candidate {
	move := stripHintPrefixes(rc.Move)
	c := Candidate{
		Move:   move,
		Parts:  ParseParts(move),
		Equity: rc.Equity,
	}
	if rc.MWC != nil {
		mwc := *rc.MWC
		if mwc > 1 {
			mwc /= 100
		}
		c.MWC = &mwc
	}
	return c
}

var (
	hintRankRE = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.*)$`)
	hintEqRE   = regexp.MustCompile(`Eq\.:\s*([+-]?\d+(?:\.\d+)?)`)
	hintMWCRE  = regexp.MustCompile(`MWC:\s*([+-]?\d+(?:\.\d+)?)%`)
	hintPlyRE  = regexp.MustCompile(`^\d+-ply\s+`)
)

// hintPrefixes are evaluation labels that precede the move text in
// gnubg's hint lines, e.g. "Cubeful 2-ply  13/7 8/7".
var hintPrefixes = []string{"Cubeful", "Cubeless", "Rollout"}

func stripHintPrefixes(moveText string) string {
	moveText = strings.TrimSpace(moveText)
	for _, prefix := range hintPrefixes {
		moveText = strings.TrimSpace(strings.TrimPrefix(moveText, prefix))
	}
	return strings.TrimSpace(hintPlyRE.ReplaceAllString(moveText, ""))
}

// ParseHintOutput extracts ranked candidates from raw hint text. Lines
// start with a rank prefix "N." or "N)" and carry either "Eq.: <float>"
// or "MWC: <pct>%"; the move text is whatever sits between the rank and
// the equity marker.
func ParseHintOutput(raw string) []Candidate {
	type ranked struct {
		rank int
		cand Candidate
	}
	var out []ranked

	for _, line := range strings.Split(raw, "\n") {
		m := hintRankRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rank, _ := strconv.Atoi(m[1])
		rest := m[2]

		var equity, mwc *float64
		markerIdx := len(rest)
		if em := hintEqRE.FindStringSubmatchIndex(rest); em != nil {
			v, _ := strconv.ParseFloat(rest[em[2]:em[3]], 64)
			equity = &v
			markerIdx = em[0]
		} else if wm := hintMWCRE.FindStringSubmatchIndex(rest); wm != nil {
			v, _ := strconv.ParseFloat(rest[wm[2]:wm[3]], 64)
			v /= 100
			mwc = &v
			markerIdx = wm[0]
		} else {
			continue
		}

		moveText := stripHintPrefixes(rest[:markerIdx])
		if moveText == "" {
			continue
		}

		out = append(out, ranked{rank, Candidate{
			Move:   moveText,
			Parts:  ParseParts(moveText),
			Equity: equity,
			MWC:    mwc,
		}})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].rank < out[j].rank })

	cands := make([]Candidate, len(out))
	for i, r := range out {
		cands[i] = r.cand
	}
	return cands
}
