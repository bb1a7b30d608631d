package cash_alert

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelConfig() Config {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyLabel
	return cfg
}

func TestExtract_SingleDepositAlert(t *testing.T) {
	body := "<table><tr><td>Value date: 12/03/2025</td></tr>" +
		"<tr><td>Amount: 30,000.00 USD</td></tr>" +
		"<tr><td>Ordering: /BNF/ AC 472852G JOHN DOE</td></tr></table>"

	blocks := Segment(body, DefaultFieldMarker)
	require.Len(t, blocks, 1)

	rec := Extract(blocks[0], DefaultConfig())

	require.True(t, rec.Amount.Valid)
	assert.True(t, rec.Amount.Decimal.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, "30,000.00", rec.AmountRaw)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, "472852G", rec.AccountCode)
	assert.True(t, rec.Valid)
}

func TestParse_TwoDepositsKeepOrder(t *testing.T) {
	body := "<table>" +
		"<tr><td>Amount: 1,500.00 EUR</td><td>Beneficiary AC 111111A</td></tr>" +
		"<tr><td>Amount: 250 GBP</td><td>/FFC/222222B</td></tr>" +
		"</table>"

	records := Parse(body, DefaultConfig())

	require.Len(t, records, 2)
	assert.Equal(t, "1500", records[0].Amount.Decimal.String())
	assert.Equal(t, "EUR", records[0].Currency)
	assert.Equal(t, "111111A", records[0].AccountCode)
	assert.True(t, records[0].Valid)

	assert.Equal(t, "250", records[1].Amount.Decimal.String())
	assert.Equal(t, "GBP", records[1].Currency)
	assert.Equal(t, "222222B", records[1].AccountCode)
	assert.True(t, records[1].Valid)
}

func TestParse_MarkerWithoutCurrencyFallsBackToInvalidRecord(t *testing.T) {
	body := "<table><tr><td>Amount: to be confirmed</td></tr></table> AC 472852G"

	records := Parse(body, DefaultConfig())

	require.Len(t, records, 1)
	assert.False(t, records[0].Valid)
	assert.Empty(t, records[0].Currency)
	assert.False(t, records[0].Amount.Valid)
	assert.Equal(t, "472852G", records[0].AccountCode)
}

func TestExtract_InvisibleSpacesInsideAmount(t *testing.T) {
	clean := Extract("Amount: 30,000.00 USD AC 472852G", DefaultConfig())

	for _, noisy := range []string{
		"Amount: 30,000.\u200900 USD AC 472852G",
		"Amount: 30,\u200b000.00\u202fUSD AC 472852G",
		"Amount:\u00a030,000.00&nbsp;USD\u2060 AC 472852G",
		"\ufeffAmount: 30,000.00 USD\r\nAC\t472852G",
	} {
		rec := Extract(noisy, DefaultConfig())
		assert.Equal(t, clean.Amount, rec.Amount, "input %q", noisy)
		assert.Equal(t, clean.Currency, rec.Currency, "input %q", noisy)
		assert.Equal(t, clean.AccountCode, rec.AccountCode, "input %q", noisy)
		assert.Equal(t, clean.Valid, rec.Valid, "input %q", noisy)
	}
}

func TestExtract_AccountCodePrefersRoutingContext(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"AC beats earlier reference", "Ref 998877Z processed today. Credit to AC 472852G", "472852G"},
		{"BNF tag", "Ref 998877Z processed today. Beneficiary /BNF/472852G", "472852G"},
		{"FFC tag lower case", "Ref 998877Z processed today. /ffc 472852G", "472852G"},
		{"no context takes first", "Ref 998877Z processed today. Other 472852G", "998877Z"},
		{"both biased takes first", "AC 111111A and AC 222222B", "111111A"},
		{"embedded in longer token ignored", "X1234567A 9123456B and 472852G", "472852G"},
		{"lower case letter ignored", "472852g", ""},
		{"ACCOUNT is not AC", "ACCOUNT 998877Z. Ref 472852G", "998877Z"},
		{"none", "nothing to see", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extract(tt.text, DefaultConfig()).AccountCode)
		})
	}
}

func TestExtract_AccountCodeWindowCountsCharacters(t *testing.T) {
	// 24 characters but 64 bytes between "AC" and the code.
	text := "Ref 998877Z processed on the usual schedule today. AC " +
		strings.Repeat("\u2014", 20) + " 472852G"

	assert.Equal(t, "472852G", Extract(text, DefaultConfig()).AccountCode)
}

func TestExtract_LabelWindowCountsCharacters(t *testing.T) {
	padding := strings.Repeat("filler ", 30)
	text := "Fee 10 EUR " + padding + "the credited amount " + strings.Repeat("\u00e9", 60) + " 750.00 GBP"

	rec := Extract(text, labelConfig())

	assert.Equal(t, "750.00", rec.AmountRaw)
	assert.Equal(t, "GBP", rec.Currency)
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		start, end    int
		before, after int
		expected      string
	}{
		{"ascii", "abcdefgh", 3, 5, 2, 1, "bcdef"},
		{"clamped", "abc", 1, 2, 10, 10, "abc"},
		{"two-byte runes", "\u00e9\u00e9\u00e9X\u00e9\u00e9", 6, 7, 2, 1, "\u00e9\u00e9X\u00e9"},
		{"outside BMP counts twice", "AC\U0001F600123456Z", 6, 13, 3, 0, "C\U0001F600123456Z"},
		{"partial pair excluded", "AC\U0001F600123456Z", 6, 13, 1, 0, "123456Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, window(tt.text, tt.start, tt.end, tt.before, tt.after))
		})
	}
}

func TestExtract_MalformedNumeralLeavesAmountAbsent(t *testing.T) {
	rec := Extract("Amount: , USD", DefaultConfig())

	assert.False(t, rec.Amount.Valid)
	assert.Equal(t, ",", rec.AmountRaw)
	assert.Equal(t, "USD", rec.Currency)
	assert.False(t, rec.Valid)
}

func TestExtract_RequireAccountCode(t *testing.T) {
	cfg := DefaultConfig()
	text := "Amount: 10.00 USD"

	assert.True(t, Extract(text, cfg).Valid)

	cfg.RequireAccountCode = true
	assert.False(t, Extract(text, cfg).Valid)
	assert.True(t, Extract(text+" AC 123456Z", cfg).Valid)
}

func TestExtract_CurrencyIsUppercased(t *testing.T) {
	rec := Extract("Amount: 12.5 chf", DefaultConfig())

	assert.Equal(t, "CHF", rec.Currency)
	assert.Equal(t, "12.5", rec.Amount.Decimal.String())
}

func TestExtract_StrategiesDisagreeOnAmbiguousText(t *testing.T) {
	text := "Ref 123,456 EUR batch. Amount - 500.00 USD AC 472852G"

	block := Extract(text, DefaultConfig())
	assert.Equal(t, "123,456", block.AmountRaw)
	assert.Equal(t, "EUR", block.Currency)

	label := Extract(text, labelConfig())
	assert.Equal(t, "500.00", label.AmountRaw)
	assert.Equal(t, "USD", label.Currency)
}

func TestExtract_LabelStrategyFallsBackToAmountWindow(t *testing.T) {
	padding := strings.Repeat("filler ", 30)
	text := "Fee 10 EUR " + padding + "the credited amount is 750.00 GBP"

	rec := Extract(text, labelConfig())

	assert.Equal(t, "750.00", rec.AmountRaw)
	assert.Equal(t, "GBP", rec.Currency)
}

func TestExtract_LabelStrategyFallsBackToFirstMatch(t *testing.T) {
	rec := Extract("Fee 10 EUR and 20 USD", labelConfig())

	assert.Equal(t, "10", rec.AmountRaw)
	assert.Equal(t, "EUR", rec.Currency)
	assert.True(t, rec.Valid)
}

func TestExtract_IsIdempotent(t *testing.T) {
	body := "<table><tr><td>Amount: 1,234.5678 SGD</td><td>/BNF/ AC 654321K ref 112233Q</td></tr></table>"

	for _, block := range Segment(body, DefaultFieldMarker) {
		first := Extract(block, DefaultConfig())
		again := Extract(block, DefaultConfig())
		assert.Equal(t, first, again)
		assert.Equal(t, "654321K", first.AccountCode)
		assert.Equal(t, "1234.5678", first.Amount.Decimal.String())
	}
}

func TestExtract_EmptyBlock(t *testing.T) {
	rec := Extract("", DefaultConfig())

	assert.False(t, rec.Valid)
	assert.False(t, rec.Amount.Valid)
	assert.Empty(t, rec.Currency)
	assert.Empty(t, rec.AccountCode)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in       string
		expected Strategy
		wantErr  bool
	}{
		{"", StrategyBlock, false},
		{"block", StrategyBlock, false},
		{"Lenient", StrategyBlock, false},
		{"label", StrategyLabel, false},
		{"STRICT", StrategyLabel, false},
		{"fuzzy", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, got, tt.in)
	}
}
