package cash_alert

import (
	"sync"

	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/shopspring/decimal"
)

var routingTags = []string{"/BNF", "/FFC"}

// Extract parses one transaction block into a record. It never fails: fields that
// cannot be found are left empty and reflected in Record.Valid.
func Extract(block string, cfg Config) common.Record {
	text := common.NormalizeWhitespace(block)

	var rec common.Record
	if m, ok := findAmount(text, cfg.Strategy); ok {
		rec.AmountRaw = m.Raw
		rec.Currency = m.Currency
		if amount, ok := common.ParseAmount(m.Raw); ok {
			rec.Amount = decimal.NewNullDecimal(amount)
		}
	}
	rec.AccountCode = findAccountCode(text)

	rec.Valid = rec.Amount.Valid && rec.Currency != ""
	if cfg.RequireAccountCode && rec.AccountCode == "" {
		rec.Valid = false
	}
	return rec
}

func findAmount(text string, strategy Strategy) (amountMatch, bool) {
	if strategy != StrategyLabel {
		return firstAmount(text)
	}

	if m, ok := labeledAmount(text); ok {
		return m, true
	}

	matches := scanAmounts(text, -1)
	candidates := make([]common.Candidate[amountMatch], 0, len(matches))
	for _, m := range matches {
		score := 0
		if hasWord(window(text, m.Start, m.End, amountWindowBefore, amountWindowAfter), "amount") {
			score = 1
		}
		candidates = append(candidates, common.Candidate[amountMatch]{Value: m, Score: score, Position: m.Start})
	}
	best, ok := common.Pick(candidates)
	return best.Value, ok
}

// findAccountCode prefers codes annotated with a routing context ("AC", "/BNF",
// "/FFC") over bare 6-digit+letter tokens such as reference ids.
func findAccountCode(text string) string {
	candidates := scanAccountCodes(text)
	for i := range candidates {
		c := &candidates[i]
		w := window(text, c.Position, c.Position+accountCodeLen, accountWindowBefore, accountWindowAfter)
		if hasWord(w, "AC") {
			c.Score = 1
			continue
		}
		for _, tag := range routingTags {
			if hasRoutingTag(w, tag) {
				c.Score = 1
				break
			}
		}
	}
	best, ok := common.Pick(candidates)
	if !ok {
		return ""
	}
	return best.Value
}

// Parse segments body and extracts every block. Blocks are independent, so they
// are parsed concurrently; the result keeps block order.
func Parse(body string, cfg Config) []common.Record {
	blocks := Segment(body, cfg.FieldMarker)
	records := make([]common.Record, len(blocks))

	var wg sync.WaitGroup
	for i, block := range blocks {
		wg.Add(1)
		go func(i int, block string) {
			defer wg.Done()
			records[i] = Extract(block, cfg)
		}(i, block)
	}
	wg.Wait()

	return records
}
