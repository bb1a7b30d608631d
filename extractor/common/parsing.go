package common

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ValueDateFormat is the dd/mm/yyyy layout used in the VALUE_DATE column.
const ValueDateFormat = "02/01/2006"

var (
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	horizontal  = strings.NewReplacer("\u00a0", " ", "\t", " ")
)

// IsInvisible reports whether r is one of the thin, zero-width, separator or BOM
// code points that mail clients sprinkle into HTML bodies.
func IsInvisible(r rune) bool {
	switch {
	case r >= '\u2000' && r <= '\u200f':
		return true
	case r == '\u2028', r == '\u2029', r == '\u202f', r == '\u2060', r == '\ufeff':
		return true
	}
	return false
}

// StripInvisible removes every rune matched by IsInvisible.
func StripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if IsInvisible(r) {
			return -1
		}
		return r
	}, s)
}

// UnifyLineEndings converts CRLF and lone CR to LF.
func UnifyLineEndings(s string) string {
	return lineEndings.Replace(s)
}

// ReplaceNbspEntities replaces every "&nbsp;" entity, in any letter case, with a space.
func ReplaceNbspEntities(s string) string {
	const entity = "&nbsp;"
	var b strings.Builder
	for {
		i := IndexFold(s, entity, 0)
		if i < 0 {
			break
		}
		b.WriteString(s[:i])
		b.WriteByte(' ')
		s = s[i+len(entity):]
	}
	if b.Len() == 0 {
		return s
	}
	b.WriteString(s)
	return b.String()
}

// NormalizeBody is the light normalization applied before block segmentation.
// Offsets into its result are what the segmenter slices on.
func NormalizeBody(s string) string {
	return ReplaceNbspEntities(UnifyLineEndings(StripInvisible(s)))
}

// NormalizeWhitespace prepares a block for field extraction: invisible runes are
// dropped, line endings unified, non-breaking spaces turned into plain spaces and
// runs of spaces and tabs collapsed. NormalizeWhitespace(NormalizeWhitespace(s)) == NormalizeWhitespace(s).
func NormalizeWhitespace(s string) string {
	s = horizontal.Replace(NormalizeBody(s))

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteByte(s[i])
	}
	return strings.TrimSpace(b.String())
}

// ParseAmount converts a comma-grouped numeral into a decimal. The second result is
// false when nothing numeric is left after removing the grouping separators.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// FormatValueDate renders t as dd/mm/yyyy in UTC.
func FormatValueDate(t time.Time) string {
	return t.UTC().Format(ValueDateFormat)
}

// ParseValueDate accepts dd/mm/yyyy or yyyy-mm-dd.
func ParseValueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(ValueDateFormat, value, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, value, time.UTC)
}

// IndexFold returns the byte index of the first ASCII case-insensitive occurrence of
// sub in s at or after from, or -1. Non-ASCII bytes only match themselves, so the
// returned offset is always valid for s.
func IndexFold(s, sub string, from int) int {
	if from < 0 {
		from = 0
	}
	n := len(sub)
	for i := from; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], sub) {
			return i
		}
	}
	return -1
}

// LastIndexFold is the reverse of IndexFold over the whole string.
func LastIndexFold(s, sub string) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if equalFoldASCII(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// Candidate is a scored match found at Position in some text.
type Candidate[T any] struct {
	Value    T
	Score    int
	Position int
}

// Pick returns the candidate with the highest score, ties broken by the lowest
// position. ok is false for an empty slice.
func Pick[T any](candidates []Candidate[T]) (best Candidate[T], ok bool) {
	if len(candidates) == 0 {
		return best, false
	}
	sorted := make([]Candidate[T], len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Position < sorted[j].Position
	})
	return sorted[0], true
}
