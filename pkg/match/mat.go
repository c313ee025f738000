package match

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/bgquiz/pkg/engine"
)

// MAT format example:
//
//  ; [Site "GamesGrid"]
//  ; [Player 1 "name1"]
//  ; [Player 2 "name2"]
//  7 point match
//
//  Game 1
//  name1 : 0            name2 : 0
//  1) 31: 8/5 6/5       52: 24/22 13/8
//  2) 43: 24/20 13/10   ...

// ErrUnparseable is returned when a transcript is structurally broken.
var ErrUnparseable = errors.New("unparseable")

var (
	matchLengthRE = regexp.MustCompile(`^(\d+)\s+point\s+match`)
	gameHeaderRE  = regexp.MustCompile(`^Game\s+(\d+)`)
	scoreLineRE   = regexp.MustCompile(`^(.+?)\s*:\s*(\d+)\s{2,}(.+?)\s*:\s*(\d+)$`)
	plyLineRE     = regexp.MustCompile(`^(\d+)\)(.*)$`)
	tagRE         = regexp.MustCompile(`\[([^"\]]+?)\s+"([^"]*)"\]`)
	columnSplitRE = regexp.MustCompile(`\s{2,}`)

	halfMoveRE = regexp.MustCompile(`^([1-6])([1-6]):\s*(.*)$`)
	doublesRE  = regexp.MustCompile(`^Doubles\s*=>\s*(\d+)`)
	winsRE     = regexp.MustCompile(`^Wins\s+(\d+)\s+points?`)
)

// ImportMAT reads a match transcript. Missing match length or missing
// score lines are tolerated; only structural violations (a ply row
// before any game) abort with ErrUnparseable.
func ImportMAT(r io.Reader) (*Match, error) {
	scanner := bufio.NewScanner(r)
	match := &Match{
		Games:  make([]*Game, 0),
		Winner: -1,
	}

	var currentGame *Game
	wantScore := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ";") {
			parseTag(line, match)
			continue
		}

		if m := matchLengthRE.FindStringSubmatch(line); m != nil {
			match.MatchLength, _ = strconv.Atoi(m[1])
			continue
		}

		if m := gameHeaderRE.FindStringSubmatch(line); m != nil {
			if currentGame != nil {
				match.Games = append(match.Games, currentGame)
			}
			gameNum, _ := strconv.Atoi(m[1])
			currentGame = &Game{
				Number:  gameNum,
				Player1: match.Player1,
				Player2: match.Player2,
				Winner:  -1,
			}
			wantScore = true
			continue
		}

		// The score line is only expected directly after the game
		// header; a game without one keeps empty player names.
		if wantScore && currentGame != nil {
			wantScore = false
			if m := scoreLineRE.FindStringSubmatch(line); m != nil {
				currentGame.Player1 = strings.TrimSpace(m[1])
				currentGame.Player2 = strings.TrimSpace(m[3])
				currentGame.Score1, _ = strconv.Atoi(m[2])
				currentGame.Score2, _ = strconv.Atoi(m[4])
				if match.Player1 == "" {
					match.Player1 = currentGame.Player1
				}
				if match.Player2 == "" {
					match.Player2 = currentGame.Player2
				}
				continue
			}
		}

		if m := plyLineRE.FindStringSubmatch(line); m != nil {
			if currentGame == nil {
				return nil, fmt.Errorf("%w: ply row before any game: %q", ErrUnparseable, line)
			}
			parsePlyRow(m, currentGame, match)
			continue
		}

		// Terminal result outside a ply row, e.g. "Wins 2 points
		// and the match." on its own line. The column that named the
		// winner is gone by now, so only the points and the match
		// flag are recorded.
		if currentGame != nil {
			if m := winsRE.FindStringSubmatch(line); m != nil {
				currentGame.Points, _ = strconv.Atoi(m[1])
				if strings.Contains(line, "and the match") {
					currentGame.WinsMatch = true
					if currentGame.Winner >= 0 {
						match.Winner = currentGame.Winner
					}
				}
			}
		}
	}

	if currentGame != nil {
		match.Games = append(match.Games, currentGame)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading transcript: %v", ErrUnparseable, err)
	}

	return match, nil
}

// parseTag handles "; [Key "value"]" metadata comments.
func parseTag(line string, match *Match) {
	m := tagRE.FindStringSubmatch(line)
	if m == nil {
		return
	}
	value := m[2]
	switch strings.ToLower(strings.Join(strings.Fields(m[1]), " ")) {
	case "player 1", "player1":
		match.Player1 = value
	case "player 2", "player2":
		match.Player2 = value
	case "site", "place":
		match.Site = value
	case "event":
		match.Event = value
	case "date", "eventdate":
		match.Date = value
	}
}

// parsePlyRow splits a numbered row into the two player columns and
// appends the ply. Writers pad cube actions with a space or two to line
// up with the dice column, so only a long run of spaces after the row
// number marks an empty player-1 column; otherwise the columns are
// separated by two or more spaces.
func parsePlyRow(m []string, game *Game, match *Match) {
	number, _ := strconv.Atoi(m[1])
	rest := m[2]

	var col1, col2 string
	trimmed := strings.TrimLeft(rest, " ")
	if len(rest)-len(trimmed) >= 4 {
		col2 = strings.TrimSpace(trimmed)
	} else {
		cols := columnSplitRE.Split(strings.TrimSpace(rest), 2)
		col1 = strings.TrimSpace(cols[0])
		if len(cols) > 1 {
			col2 = strings.TrimSpace(cols[1])
		}
	}

	ply := Ply{
		Number: number,
		Halves: [2]HalfPly{parseHalf(col1), parseHalf(col2)},
	}
	game.Plies = append(game.Plies, ply)

	for player, half := range ply.Halves {
		if half.Kind != HalfWin {
			continue
		}
		game.Winner = player
		game.Points = half.Points
		if strings.Contains(half.Text, "and the match") {
			game.WinsMatch = true
			match.Winner = player
		}
	}
}

// parseHalf classifies one column of a ply row. Action keywords are
// case-sensitive; anything unrecognized is kept verbatim so ply
// alignment survives odd transcripts.
func parseHalf(text string) HalfPly {
	text = strings.TrimSpace(text)
	if text == "" {
		return HalfPly{Kind: HalfNoMove}
	}

	if m := doublesRE.FindStringSubmatch(text); m != nil {
		value, _ := strconv.Atoi(m[1])
		return HalfPly{Kind: HalfDouble, CubeValue: value}
	}
	if text == "Takes" {
		return HalfPly{Kind: HalfTake}
	}
	if text == "Drops" {
		return HalfPly{Kind: HalfDrop}
	}
	if m := winsRE.FindStringSubmatch(text); m != nil {
		points, _ := strconv.Atoi(m[1])
		return HalfPly{Kind: HalfWin, Points: points, Text: text}
	}
	if m := halfMoveRE.FindStringSubmatch(text); m != nil {
		d1 := int(m[1][0] - '0')
		d2 := int(m[2][0] - '0')
		// An empty token list is a legal roll with no playable
		// checkers (a forced pass).
		return HalfPly{
			Kind:  HalfMove,
			Dice:  [2]int{d1, d2},
			Parts: engine.ParseParts(m[3]),
		}
	}

	return HalfPly{Kind: HalfUnknown, Text: text}
}
