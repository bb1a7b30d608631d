package cash_alert

import (
	"github.com/aqlanhadi/cashalert/extractor/common"
)

const (
	tableOpen  = "<table"
	tableClose = "</table"
)

// Segment splits an alert body into transaction blocks. A block starts at each
// occurrence of marker inside the table region of the body and runs up to the next
// one. Blocks without a "<numeral> <CCY>" token are dropped as noise. When nothing
// survives, the untouched body is returned as the only block, so the result is
// never empty.
func Segment(body, marker string) []string {
	if marker == "" {
		marker = DefaultFieldMarker
	}

	text := common.NormalizeBody(body)

	start := common.IndexFold(text, tableOpen, 0)
	if start < 0 {
		start = 0
	}
	end := common.LastIndexFold(text, tableClose)
	if end < start {
		end = len(text)
	}
	region := text[start:end]

	var starts []int
	for i := common.IndexFold(region, marker, 0); i >= 0; i = common.IndexFold(region, marker, i+len(marker)) {
		starts = append(starts, i)
	}
	if len(starts) == 0 {
		return []string{body}
	}

	blocks := make([]string, 0, len(starts))
	for i, from := range starts {
		to := len(region)
		if i+1 < len(starts) {
			to = starts[i+1]
		}
		candidate := region[from:to]
		if _, ok := firstAmount(candidate); ok {
			blocks = append(blocks, candidate)
		}
	}

	if len(blocks) == 0 {
		return []string{body}
	}
	return blocks
}
