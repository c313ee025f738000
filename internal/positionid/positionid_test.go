package positionid

import (
	"testing"
)

// startingSlots returns the standard starting position for both players:
// 2 on the 24-point, 5 on the 13-point, 3 on the 8-point, 5 on the
// 6-point, each from that player's own perspective.
func startingSlots() [2]Slots {
	var slots [2]Slots
	for i := 0; i < 2; i++ {
		slots[i][6] = 5
		slots[i][8] = 3
		slots[i][13] = 5
		slots[i][24] = 2
	}
	return slots
}

// Known position ID for the starting position from gnubg.
const startingPositionID = "4HPwATDgc/ABMA"

func TestEncodePositionStarting(t *testing.T) {
	id := EncodePosition(startingSlots(), 0)
	if id != startingPositionID {
		t.Errorf("EncodePosition = %s, want %s", id, startingPositionID)
	}

	// The starting position is symmetric, so the roller must not matter.
	if id2 := EncodePosition(startingSlots(), 1); id2 != id {
		t.Errorf("EncodePosition roller=1 = %s, want %s", id2, id)
	}
}

func TestPositionRoundTrip(t *testing.T) {
	slots := startingSlots()

	// Make the position asymmetric: player 2 has hit a blot and borne
	// off two checkers.
	slots[1][24] = 0
	slots[1][25] = 1
	slots[1][0] = 2
	slots[1][5] = 1

	for roller := 0; roller < 2; roller++ {
		id := EncodePosition(slots, roller)
		if len(id) != PositionIDLength {
			t.Fatalf("roller %d: id length = %d, want %d", roller, len(id), PositionIDLength)
		}

		got, err := DecodePosition(id, roller)
		if err != nil {
			t.Fatalf("roller %d: DecodePosition: %v", roller, err)
		}
		if got != slots {
			t.Errorf("roller %d: round-trip mismatch\n got %v\nwant %v", roller, got, slots)
		}

		// encode(decode(s)) == s
		if id2 := EncodePosition(got, roller); id2 != id {
			t.Errorf("roller %d: re-encode = %s, want %s", roller, id2, id)
		}
	}
}

func TestDecodePositionRollerFirst(t *testing.T) {
	slots := startingSlots()
	slots[0][6] = 4
	slots[0][5] = 1

	id := EncodePosition(slots, 1)

	// Decoding with the wrong roller must swap the sides.
	swapped, err := DecodePosition(id, 0)
	if err != nil {
		t.Fatalf("DecodePosition: %v", err)
	}
	if swapped[0] != slots[1] || swapped[1] != slots[0] {
		t.Errorf("decoding with wrong roller did not swap sides")
	}
}

func TestDecodePositionInvalid(t *testing.T) {
	cases := []string{
		"",
		"short",
		"//////////////", // 30 one-bits is legal, but all-ones has no terminators
		"!!!!!!!!!!!!!!",
	}
	for _, id := range cases {
		if _, err := DecodePosition(id, 0); err == nil {
			t.Errorf("DecodePosition(%q) = nil error, want failure", id)
		}
	}
}

func TestCheckSlots(t *testing.T) {
	if !CheckSlots(startingSlots()) {
		t.Error("starting position rejected")
	}

	bad := startingSlots()
	bad[0][6] = 4 // only 14 checkers
	if CheckSlots(bad) {
		t.Error("14-checker side accepted")
	}

	neg := startingSlots()
	neg[1][3] = -1
	neg[1][4] = 1
	if CheckSlots(neg) {
		t.Error("negative slot accepted")
	}
}

// Known match ID for a money game, player 1 on roll, cube centered at 1,
// no dice set.
const moneyGameMatchID = "MAEAAAAAAAAA"

func TestEncodeMatchMoneyGame(t *testing.T) {
	id := EncodeMatch(MatchInfo{CubeValue: 1, CubeOwner: -1})
	if id != moneyGameMatchID {
		t.Errorf("EncodeMatch = %s, want %s", id, moneyGameMatchID)
	}
}

func TestMatchRoundTrip(t *testing.T) {
	cases := []MatchInfo{
		{CubeValue: 1, CubeOwner: -1},
		{CubeValue: 2, CubeOwner: 0, Roller: 1, Dice: [2]int{6, 2}, MatchLength: 7, Score: [2]int{3, 5}},
		{CubeValue: 16, CubeOwner: 1, Roller: 0, Dice: [2]int{1, 1}, MatchLength: 25, Score: [2]int{24, 0}},
		{CubeValue: 1, CubeOwner: -1, Roller: 1, MatchLength: 0, Score: [2]int{0, 0}},
	}

	for _, mi := range cases {
		id := EncodeMatch(mi)
		if len(id) != MatchIDLength {
			t.Fatalf("match id length = %d, want %d", len(id), MatchIDLength)
		}

		got, err := DecodeMatch(id)
		if err != nil {
			t.Fatalf("DecodeMatch(%s): %v", id, err)
		}

		if got.CubeValue != mi.CubeValue || got.CubeOwner != mi.CubeOwner ||
			got.Roller != mi.Roller || got.Dice != mi.Dice ||
			got.MatchLength != mi.MatchLength || got.Score != mi.Score {
			t.Errorf("round-trip mismatch for %+v: got %+v", mi, got)
		}
		if got.GameState != gameStateInProgress {
			t.Errorf("game state = %d, want %d", got.GameState, gameStateInProgress)
		}
		if got.DecisionOwner != mi.Roller {
			t.Errorf("decision owner = %d, want roller %d", got.DecisionOwner, mi.Roller)
		}

		if id2 := EncodeMatch(got); id2 != id {
			t.Errorf("re-encode = %s, want %s", id2, id)
		}
	}
}

func TestDecodeMatchInvalid(t *testing.T) {
	if _, err := DecodeMatch("bad"); err == nil {
		t.Error("short match ID accepted")
	}
	if _, err := DecodeMatch("????????????"); err == nil {
		t.Error("non-base64 match ID accepted")
	}
}
