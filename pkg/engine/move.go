package engine

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MovePart is a single checker movement. From is 1..25 (25 = bar), To is
// 0..24 (0 = bearoff). Hit marks that the destination's lone opposing
// checker is sent to the opponent's bar.
type MovePart struct {
	From int  `json:"from"`
	To   int  `json:"to"`
	Hit  bool `json:"hit"`
}

// Token renders the part in engine notation: "bar/19*", "6/off".
func (p MovePart) Token() string {
	var sb strings.Builder
	if p.From == 25 {
		sb.WriteString("bar")
	} else {
		sb.WriteString(strconv.Itoa(p.From))
	}
	sb.WriteByte('/')
	if p.To == 0 {
		sb.WriteString("off")
	} else {
		sb.WriteString(strconv.Itoa(p.To))
	}
	if p.Hit {
		sb.WriteByte('*')
	}
	return sb.String()
}

// FormatParts joins parts into a move text in engine notation.
func FormatParts(parts []MovePart) string {
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		tokens = append(tokens, p.Token())
	}
	return strings.Join(tokens, " ")
}

var (
	moveTokenRE = regexp.MustCompile(`(?i)^(bar|\d+)/(off|\d+)(\*)?$`)
	shorthandRE = regexp.MustCompile(`(?i)^(bar|\d+)/(off|\d+)(\*)?\((\d+)\)$`)
)

// ParseParts converts a move text into parts. Tokens that do not match
// the move grammar are silently dropped; shorthand "X/Y(n)" expands to n
// parts with the hit recorded only on the first.
func ParseParts(text string) []MovePart {
	var parts []MovePart
	for _, token := range expandTokens(text) {
		m := moveTokenRE.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		parts = append(parts, MovePart{
			From: pointValue(m[1], 25),
			To:   pointValue(m[2], 0),
			Hit:  m[3] != "",
		})
	}
	return parts
}

// pointValue maps a from/to field to its slot index; the named form
// ("bar" or "off") maps to the given special slot.
func pointValue(s string, special int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return special
}

// expandTokens splits a move text on whitespace and expands shorthand,
// keeping the '*' suffix only on the first copy of a repeated token.
func expandTokens(text string) []string {
	var out []string
	for _, token := range strings.Fields(text) {
		m := shorthandRE.FindStringSubmatch(token)
		if m == nil {
			out = append(out, token)
			continue
		}
		count, _ := strconv.Atoi(m[4])
		base := m[1] + "/" + m[2]
		for i := 0; i < count; i++ {
			if i == 0 && m[3] != "" {
				out = append(out, base+"*")
			} else {
				out = append(out, base)
			}
		}
	}
	return out
}

// normalizeToken lowercases a token and rewrites the numeric aliases of
// the special slots: 25 becomes "bar" on the source side and 0 becomes
// "off" on the destination side.
func normalizeToken(token string) string {
	token = strings.ToLower(token)
	m := moveTokenRE.FindStringSubmatch(token)
	if m == nil {
		return token
	}
	from, to := m[1], m[2]
	if from == "25" {
		from = "bar"
	}
	if to == "0" {
		to = "off"
	}
	return from + "/" + to + m[3]
}

// CanonicalTokens returns the canonical form of a move text: the sorted
// multiset of normalized tokens after shorthand expansion.
func CanonicalTokens(text string) []string {
	tokens := expandTokens(text)
	for i, t := range tokens {
		tokens[i] = normalizeToken(t)
	}
	sort.Strings(tokens)
	return tokens
}

// CanonicalKey returns the canonical form as a single comparable string.
func CanonicalKey(text string) string {
	return strings.Join(CanonicalTokens(text), " ")
}

// SameMove reports whether two move texts denote the same move under the
// canonical equivalence relation.
func SameMove(a, b string) bool {
	return CanonicalKey(a) == CanonicalKey(b)
}
