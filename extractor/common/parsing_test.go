package common

import (
	"testing"
	"time"
)

func TestParseAmount_Grouped(t *testing.T) {
	result, ok := ParseAmount("30,000.00")
	if !ok {
		t.Fatal("Expected amount to be present")
	}
	if result.String() != "30000" {
		t.Errorf("Expected '30000', got '%s'", result.String())
	}
}

func TestParseAmount_IntegerGrouped(t *testing.T) {
	result, ok := ParseAmount("1,234")
	if !ok {
		t.Fatal("Expected amount to be present")
	}
	if result.String() != "1234" {
		t.Errorf("Expected '1234', got '%s'", result.String())
	}
}

func TestParseAmount_FourDecimals(t *testing.T) {
	result, ok := ParseAmount("1,234,567.8912")
	if !ok {
		t.Fatal("Expected amount to be present")
	}
	if result.String() != "1234567.8912" {
		t.Errorf("Expected '1234567.8912', got '%s'", result.String())
	}
}

func TestParseAmount_EmptyString(t *testing.T) {
	if _, ok := ParseAmount(""); ok {
		t.Error("Expected empty string to be absent")
	}
}

func TestParseAmount_OnlySeparators(t *testing.T) {
	if _, ok := ParseAmount(",,,"); ok {
		t.Error("Expected separators only to be absent")
	}
}

func TestParseAmount_Garbage(t *testing.T) {
	if _, ok := ParseAmount("12.3.4"); ok {
		t.Error("Expected malformed numeral to be absent")
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"  Amount:\t\t30,000.00   USD  ", "Amount: 30,000.00 USD"},
		{"Amount:&NBSP;10&nbsp;&nbsp;EUR", "Amount: 10 EUR"},
		{"a\r\nb\rc", "a\nb\nc"},
		{"a\r\r\nb", "a\n\nb"},
		{"30,000.\u200900\u00a0USD", "30,000.00 USD"},
		{"\ufeffzero\u200bwidth\u2060\u2028joined\u202f", "zerowidthjoined"},
		{"", ""},
	}

	for _, tt := range tests {
		got := NormalizeWhitespace(tt.in)
		if got != tt.expected {
			t.Errorf("NormalizeWhitespace(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestNormalizeWhitespace_FixedPoint(t *testing.T) {
	inputs := []string{
		"  Amount:\t30,000.00 \u00a0 USD\r\n\r\nAC 472852G  ",
		"a\r\r\nb \t \n  c",
		"&nb\u200bsp;x",
		"<td>&nbsp;</td>\n\t<td>Amount: 1 USD</td>",
		"\u00a0\u00a0\u2003",
	}

	for _, in := range inputs {
		once := NormalizeWhitespace(in)
		twice := NormalizeWhitespace(once)
		if once != twice {
			t.Errorf("Expected fixed point for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeBody_KeepsLayout(t *testing.T) {
	got := NormalizeBody("<td>Amount:&nbsp;&nbsp;5 USD</td>\r\n<td>AC\u200b 1</td>")
	expected := "<td>Amount:  5 USD</td>\n<td>AC 1</td>"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestIndexFold(t *testing.T) {
	s := "xx <TABLE> amount: AMOUNT: </Table>"

	if i := IndexFold(s, "<table", 0); i != 3 {
		t.Errorf("Expected 3, got %d", i)
	}
	if i := IndexFold(s, "amount: ", 12); i != 19 {
		t.Errorf("Expected 19, got %d", i)
	}
	if i := IndexFold(s, "missing", 0); i != -1 {
		t.Errorf("Expected -1, got %d", i)
	}
	if i := LastIndexFold(s, "</table"); i != 27 {
		t.Errorf("Expected 27, got %d", i)
	}
}

func TestIndexFold_NonASCII(t *testing.T) {
	s := "\u0130\u0130 amount"
	i := IndexFold(s, "AMOUNT", 0)
	if s[i:] != "amount" {
		t.Errorf("Expected offset of 'amount', got %d", i)
	}
}

func TestPick_HighestScoreThenEarliest(t *testing.T) {
	candidates := []Candidate[string]{
		{Value: "late-low", Score: 0, Position: 1},
		{Value: "late-high", Score: 1, Position: 30},
		{Value: "early-high", Score: 1, Position: 10},
	}

	best, ok := Pick(candidates)
	if !ok {
		t.Fatal("Expected a candidate")
	}
	if best.Value != "early-high" {
		t.Errorf("Expected 'early-high', got '%s'", best.Value)
	}
	if candidates[0].Value != "late-low" {
		t.Error("Expected Pick to leave the input order untouched")
	}
}

func TestPick_Empty(t *testing.T) {
	if _, ok := Pick[int](nil); ok {
		t.Error("Expected no candidate from empty input")
	}
}

func TestFormatValueDate_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	received := time.Date(2025, 3, 1, 2, 30, 0, 0, loc)

	if got := FormatValueDate(received); got != "28/02/2025" {
		t.Errorf("Expected '28/02/2025', got '%s'", got)
	}
}

func TestParseValueDate(t *testing.T) {
	for _, in := range []string{"15/11/2024", "2024-11-15"} {
		result, err := ParseValueDate(in)
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", in, err)
		}
		if result.Day() != 15 || result.Month() != 11 || result.Year() != 2024 {
			t.Errorf("Unexpected date for %q: %v", in, result)
		}
	}
}

func TestParseValueDate_Invalid(t *testing.T) {
	if _, err := ParseValueDate("invalid"); err == nil {
		t.Error("Expected error for invalid date, got nil")
	}
}
