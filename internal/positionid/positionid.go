// Package positionid implements the gnubg-compatible position and match
// identifier codecs.
//
// A position ID is a 14-character base64 string packing 80 bits of board
// occupancy; a match ID is a 12-character base64 string packing 66 bits of
// match context. Their concatenation "positionID:matchID" is used both as a
// content-addressable key and as the engine's query input.
package positionid

import (
	"errors"
)

const (
	// PositionIDLength is the length of a position ID string.
	PositionIDLength = 14
	// MatchIDLength is the length of a match ID string.
	MatchIDLength = 12
)

// Base64 alphabet used for ID encoding.
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Slots holds one player's checker counts from that player's own
// perspective: index 0 is checkers borne off, 1..24 are board points
// (1 is the innermost home point), 25 is the bar.
type Slots [26]int

// Total returns the number of checkers across all 26 slots.
func (s Slots) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// OnBoard returns the number of checkers not yet borne off.
func (s Slots) OnBoard() int {
	return s.Total() - s[0]
}

// ErrInvalidPositionID is returned when a position ID cannot be decoded.
var ErrInvalidPositionID = errors.New("invalid position ID")

// ErrInvalidMatchID is returned when a match ID cannot be decoded.
var ErrInvalidMatchID = errors.New("invalid match ID")

// addBits sets nBits consecutive 1-bits starting at bitPos.
// The stream is little-endian: bit i of the stream is bit i%8 of byte i/8.
func addBits(key []uint8, bitPos, nBits int) {
	k := bitPos / 8
	r := bitPos & 0x7
	b := ((uint32(1) << nBits) - 1) << r

	key[k] |= uint8(b)
	if k+1 < len(key) {
		key[k+1] |= uint8(b >> 8)
	}
	if k+2 < len(key) {
		key[k+2] |= uint8(b >> 16)
	}
}

// EncodePosition packs two sides into a 14-character position ID.
//
// The side to move is emitted first, the opponent second; within each side
// the order is points 1..24 followed by the bar. Each slot contributes its
// count as 1-bits terminated by a single 0-bit. Borne-off checkers are not
// encoded; they are implied by the missing count.
func EncodePosition(slots [2]Slots, roller int) string {
	var key [10]uint8
	bitPos := 0

	for _, side := range [2]int{roller & 1, 1 - roller&1} {
		for j := 1; j <= 25; j++ {
			n := slots[side][j]
			if n > 0 {
				addBits(key[:], bitPos, n)
				bitPos += n + 1
			} else {
				bitPos++
			}
		}
	}

	return encodeBase64(key[:], PositionIDLength)
}

// DecodePosition is the inverse of EncodePosition. The caller must supply
// the roller taken from the match ID: the first unary run belongs to the
// side to move, and a decoder that distributes bits before establishing
// the roller assigns the sides backwards.
func DecodePosition(id string, roller int) ([2]Slots, error) {
	var slots [2]Slots

	key, err := decodeBase64(id, PositionIDLength, 10)
	if err != nil {
		return slots, ErrInvalidPositionID
	}

	order := [2]int{roller & 1, 1 - roller&1}
	side, slot := 0, 1
	for _, b := range key {
		for k := 0; k < 8; k++ {
			if side >= 2 {
				break
			}
			if b&1 != 0 {
				slots[order[side]][slot]++
			} else {
				slot++
				if slot > 25 {
					side++
					slot = 1
				}
			}
			b >>= 1
		}
	}
	if side < 2 {
		return slots, ErrInvalidPositionID
	}

	// Checkers not on the board are borne off.
	for i := 0; i < 2; i++ {
		on := slots[i].OnBoard()
		if on > 15 {
			return slots, ErrInvalidPositionID
		}
		slots[i][0] = 15 - on
	}

	return slots, nil
}

// CheckSlots reports whether both sides hold exactly 15 checkers with no
// negative counts.
func CheckSlots(slots [2]Slots) bool {
	for i := 0; i < 2; i++ {
		for _, c := range slots[i] {
			if c < 0 {
				return false
			}
		}
		if slots[i].Total() != 15 {
			return false
		}
	}
	return true
}

// encodeBase64 maps packed bytes onto n base64 characters, 6 bits at a
// time, without padding.
func encodeBase64(key []uint8, n int) string {
	result := make([]byte, 0, n+2)
	for i := 0; i+3 <= len(key); i += 3 {
		result = append(result,
			base64Chars[key[i]>>2],
			base64Chars[((key[i]&0x03)<<4)|(key[i+1]>>4)],
			base64Chars[((key[i+1]&0x0F)<<2)|(key[i+2]>>6)],
			base64Chars[key[i+2]&0x3F])
	}
	switch len(key) % 3 {
	case 1:
		last := key[len(key)-1]
		result = append(result,
			base64Chars[last>>2],
			base64Chars[(last&0x03)<<4])
	case 2:
		a, b := key[len(key)-2], key[len(key)-1]
		result = append(result,
			base64Chars[a>>2],
			base64Chars[((a&0x03)<<4)|(b>>4)],
			base64Chars[(b&0x0F)<<2])
	}
	return string(result[:n])
}

// base64Val decodes one base64 character, returning 255 on failure.
func base64Val(ch byte) uint8 {
	switch {
	case ch >= 'A' && ch <= 'Z':
		return ch - 'A'
	case ch >= 'a' && ch <= 'z':
		return ch - 'a' + 26
	case ch >= '0' && ch <= '9':
		return ch - '0' + 52
	case ch == '+':
		return 62
	case ch == '/':
		return 63
	}
	return 255
}

// decodeBase64 unpacks an ID string of idLen characters into keyLen bytes.
func decodeBase64(id string, idLen, keyLen int) ([]uint8, error) {
	if len(id) < idLen {
		return nil, errors.New("short id")
	}

	vals := make([]uint8, idLen)
	for i := 0; i < idLen; i++ {
		vals[i] = base64Val(id[i])
		if vals[i] == 255 {
			return nil, errors.New("bad base64 character")
		}
	}

	key := make([]uint8, 0, keyLen+2)
	i := 0
	for ; i+4 <= idLen; i += 4 {
		key = append(key,
			(vals[i]<<2)|(vals[i+1]>>4),
			(vals[i+1]<<4)|(vals[i+2]>>2),
			(vals[i+2]<<6)|vals[i+3])
	}
	if idLen-i >= 2 {
		key = append(key, (vals[i]<<2)|(vals[i+1]>>4))
	}
	if idLen-i >= 3 {
		key = append(key, (vals[i+1]<<4)|(vals[i+2]>>2))
	}
	if len(key) < keyLen {
		return nil, errors.New("short key")
	}
	return key[:keyLen], nil
}
