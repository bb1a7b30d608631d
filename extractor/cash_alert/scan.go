package cash_alert

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/aqlanhadi/cashalert/extractor/common"
)

const (
	accountCodeLen = 7

	accountWindowBefore = 40
	accountWindowAfter  = 20
	amountWindowBefore  = 120
	amountWindowAfter   = 60
)

// amountMatch is one "<numeral> <CCY>" lexeme, e.g. "30,000.00 USD".
// Start and End are byte offsets of the whole lexeme.
type amountMatch struct {
	Raw      string
	Currency string
	Start    int
	End      int
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isUpper(c byte) bool  { return c >= 'A' && c <= 'Z' }

func isWordByte(c byte) bool { return isDigit(c) || isLetter(c) || c == '_' }

func isNumeralByte(c byte) bool { return isDigit(c) || c == ',' }

func skipSpaces(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

func boundaryBefore(s string, i int) bool { return i == 0 || !isWordByte(s[i-1]) }
func boundaryAfter(s string, i int) bool  { return i >= len(s) || !isWordByte(s[i]) }

// matchAmountAt matches [\d,]+(\.\d{1,4})?\s*[A-Za-z]{3}\b anchored at i.
func matchAmountAt(s string, i int) (amountMatch, bool) {
	j := i
	for j < len(s) && isNumeralByte(s[j]) {
		j++
	}
	if j == i {
		return amountMatch{}, false
	}

	end := j
	if j < len(s) && s[j] == '.' {
		k := j + 1
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		// A dot not followed by 1-4 digits leaves a digit or a dot where the
		// currency must start, so there is no match from here.
		if n := k - j - 1; n < 1 || n > 4 {
			return amountMatch{}, false
		}
		end = k
	}

	t := skipSpaces(s, end)
	if t+3 > len(s) || !isLetter(s[t]) || !isLetter(s[t+1]) || !isLetter(s[t+2]) {
		return amountMatch{}, false
	}
	if !boundaryAfter(s, t+3) {
		return amountMatch{}, false
	}

	return amountMatch{
		Raw:      s[i:end],
		Currency: strings.ToUpper(s[t : t+3]),
		Start:    i,
		End:      t + 3,
	}, true
}

// scanAmounts returns up to limit non-overlapping amount lexemes in s, left to
// right. A negative limit returns all of them.
func scanAmounts(s string, limit int) []amountMatch {
	var out []amountMatch
	for i := 0; i < len(s) && limit != 0; {
		if !isNumeralByte(s[i]) {
			i++
			continue
		}
		if m, ok := matchAmountAt(s, i); ok {
			out = append(out, m)
			limit--
			i = m.End
			continue
		}
		// every start inside the same run ends at the same place and fails the same way
		for i < len(s) && isNumeralByte(s[i]) {
			i++
		}
	}
	return out
}

func firstAmount(s string) (amountMatch, bool) {
	if m := scanAmounts(s, 1); len(m) == 1 {
		return m[0], true
	}
	return amountMatch{}, false
}

// labeledAmount finds the first lexeme written as "amount: <lexeme>" or
// "amount - <lexeme>", label in any case.
func labeledAmount(s string) (amountMatch, bool) {
	const label = "amount"
	for i := common.IndexFold(s, label, 0); i >= 0; i = common.IndexFold(s, label, i+1) {
		if !boundaryBefore(s, i) {
			continue
		}
		p := skipSpaces(s, i+len(label))
		if p >= len(s) || (s[p] != ':' && s[p] != '-') {
			continue
		}
		p = skipSpaces(s, p+1)
		if p < len(s) && isNumeralByte(s[p]) {
			if m, ok := matchAmountAt(s, p); ok {
				return m, true
			}
		}
	}
	return amountMatch{}, false
}

// hasWord reports whether word occurs in s, in any case, delimited by non-word
// bytes or the ends of s.
func hasWord(s, word string) bool {
	for i := common.IndexFold(s, word, 0); i >= 0; i = common.IndexFold(s, word, i+1) {
		if boundaryBefore(s, i) && boundaryAfter(s, i+len(word)) {
			return true
		}
	}
	return false
}

// hasRoutingTag reports whether tag (e.g. "/BNF") occurs in s followed by a word boundary.
func hasRoutingTag(s, tag string) bool {
	for i := common.IndexFold(s, tag, 0); i >= 0; i = common.IndexFold(s, tag, i+1) {
		if boundaryAfter(s, i+len(tag)) {
			return true
		}
	}
	return false
}

// window returns s[start:end] widened by up to before characters on the left and
// after characters on the right. Characters are UTF-16 code units, the unit mail
// clients index text in, so a rune outside the BMP counts twice.
func window(s string, start, end, before, after int) string {
	lo := start
	for n := 0; lo > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:lo])
		if n += utf16.RuneLen(r); n > before {
			break
		}
		lo -= size
	}

	hi := end
	for n := 0; hi < len(s); {
		r, size := utf8.DecodeRuneInString(s[hi:])
		if n += utf16.RuneLen(r); n > after {
			break
		}
		hi += size
	}
	return s[lo:hi]
}

// scanAccountCodes returns every standalone 6-digit+uppercase-letter token with its offset.
func scanAccountCodes(s string) []common.Candidate[string] {
	var out []common.Candidate[string]
	for i := 0; i+accountCodeLen <= len(s); i++ {
		if !boundaryBefore(s, i) {
			continue
		}
		ok := true
		for k := 0; k < 6; k++ {
			if !isDigit(s[i+k]) {
				ok = false
				break
			}
		}
		if !ok || !isUpper(s[i+6]) || !boundaryAfter(s, i+accountCodeLen) {
			continue
		}
		out = append(out, common.Candidate[string]{Value: s[i : i+accountCodeLen], Position: i})
		i += accountCodeLen - 1
	}
	return out
}
