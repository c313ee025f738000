package positionid

// MatchInfo is the match context carried by a match ID.
//
// CubeOwner and the other player fields use 0 for player 1 and 1 for
// player 2; CubeOwner -1 means the cube is centered. Dice are 0 when
// unset. MatchLength 0 is a money game.
type MatchInfo struct {
	CubeValue     int
	CubeOwner     int
	Roller        int
	Crawford      bool
	GameState     int
	DecisionOwner int
	DoubleOffered bool
	Resignation   int
	Dice          [2]int
	MatchLength   int
	Score         [2]int
}

// gameStateInProgress is the only state this codec emits.
const gameStateInProgress = 1

// putBits writes width bits of value at bitPos, least-significant bit
// first, into the little-endian bit stream.
func putBits(key []uint8, bitPos, width int, value uint32) {
	for i := 0; i < width; i++ {
		if value&(1<<i) != 0 {
			p := bitPos + i
			key[p/8] |= 1 << (p % 8)
		}
	}
}

// getBits reads width bits starting at bitPos, least-significant first.
func getBits(key []uint8, bitPos, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		p := bitPos + i
		if key[p/8]&(1<<(p%8)) != 0 {
			v |= 1 << i
		}
	}
	return v
}

// cubeExponent returns log2 of the cube value clamped to 0..15.
func cubeExponent(cube int) uint32 {
	e := uint32(0)
	for cube > 1 && e < 15 {
		cube >>= 1
		e++
	}
	return e
}

// EncodeMatch packs match context into a 12-character match ID.
// 66 bits are used; the remaining 6 are zero padding.
func EncodeMatch(mi MatchInfo) string {
	var key [9]uint8
	pos := 0

	write := func(width int, value uint32) {
		putBits(key[:], pos, width, value)
		pos += width
	}

	write(4, cubeExponent(mi.CubeValue))
	owner := uint32(3) // centered
	switch mi.CubeOwner {
	case 0:
		owner = 0
	case 1:
		owner = 1
	}
	write(2, owner)
	write(1, uint32(mi.Roller&1))
	if mi.Crawford {
		write(1, 1)
	} else {
		write(1, 0)
	}
	write(3, gameStateInProgress)
	write(1, uint32(mi.Roller&1)) // decision owner follows the roller
	write(1, 0)                   // double not offered
	write(2, 0)                   // no resignation
	write(3, uint32(clampDie(mi.Dice[0])))
	write(3, uint32(clampDie(mi.Dice[1])))
	write(15, uint32(mi.MatchLength&0x7fff))
	write(15, uint32(mi.Score[0]&0x7fff))
	write(15, uint32(mi.Score[1]&0x7fff))

	return encodeBase64(key[:], MatchIDLength)
}

// DecodeMatch is the inverse of EncodeMatch.
func DecodeMatch(id string) (MatchInfo, error) {
	var mi MatchInfo

	key, err := decodeBase64(id, MatchIDLength, 9)
	if err != nil {
		return mi, ErrInvalidMatchID
	}

	pos := 0
	read := func(width int) uint32 {
		v := getBits(key, pos, width)
		pos += width
		return v
	}

	mi.CubeValue = 1 << read(4)
	switch read(2) {
	case 0:
		mi.CubeOwner = 0
	case 1:
		mi.CubeOwner = 1
	default:
		mi.CubeOwner = -1
	}
	mi.Roller = int(read(1))
	mi.Crawford = read(1) != 0
	mi.GameState = int(read(3))
	mi.DecisionOwner = int(read(1))
	mi.DoubleOffered = read(1) != 0
	mi.Resignation = int(read(2))
	mi.Dice[0] = int(read(3))
	mi.Dice[1] = int(read(3))
	mi.MatchLength = int(read(15))
	mi.Score[0] = int(read(15))
	mi.Score[1] = int(read(15))

	if mi.Dice[0] > 6 || mi.Dice[1] > 6 {
		return mi, ErrInvalidMatchID
	}

	return mi, nil
}

// clampDie maps a die to the 0..6 range used on the wire, 0 meaning unset.
func clampDie(d int) int {
	if d < 0 || d > 6 {
		return 0
	}
	return d
}
