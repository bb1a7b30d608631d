package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aqlanhadi/cashalert/extractor/cash_alert"
	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/logger"
	"github.com/aqlanhadi/cashalert/lookup"
	"github.com/shopspring/decimal"
)

// ErrNoValidTransactions is returned when an alert yields no valid transaction block.
var ErrNoValidTransactions = errors.New("no valid transaction blocks found")

// Options tune a single extraction run.
type Options struct {
	Parse cash_alert.Config
	// ValueDate overrides the received date of the message when set.
	ValueDate time.Time
	// Now is used when neither ValueDate nor the message carry a date.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{Parse: cash_alert.DefaultConfig(), Now: time.Now}
}

// Result is the outcome of one alert.
type Result struct {
	Source    string           `json:"source"`
	ValueDate string           `json:"value_date"`
	From      string           `json:"from,omitempty"`
	Subject   string           `json:"subject,omitempty"`
	Deposits  []common.Deposit `json:"deposits"`
	Discarded int              `json:"discarded"`
}

// MissingLookups counts deposits without a lookup row.
func (r Result) MissingLookups() int {
	n := 0
	for _, d := range r.Deposits {
		if d.Lookup == nil {
			n++
		}
	}
	return n
}

// Summary renders one line per deposit.
func (r Result) Summary() string {
	var b strings.Builder
	for _, d := range r.Deposits {
		amount := "?"
		if d.Record.Amount.Valid {
			amount = d.Record.Amount.Decimal.StringFixed(2)
		}
		code := d.Record.AccountCode
		if code == "" {
			code = "-"
		}
		match := "no lookup row"
		if d.Lookup != nil {
			match = "lookup " + d.Lookup.LegalEntity
		}
		fmt.Fprintf(&b, "%d. %s %s %s (%s)\n", d.Sequence, amount, d.Record.Currency, code, match)
	}
	return b.String()
}

func valueDate(msg common.Message, opts Options) time.Time {
	switch {
	case !opts.ValueDate.IsZero():
		return opts.ValueDate
	case !msg.Date.IsZero():
		return msg.Date
	case opts.Now != nil:
		return opts.Now()
	}
	return time.Now()
}

// ProcessBody extracts the deposits of one message and joins them with the lookup
// table. Invalid blocks are counted in Result.Discarded. cache may be nil.
func ProcessBody(ctx context.Context, msg common.Message, cache *lookup.Cache, opts Options) (Result, error) {
	log := logger.FromContext(ctx)

	result := Result{
		ValueDate: common.FormatValueDate(valueDate(msg, opts)),
		From:      msg.From,
		Subject:   msg.Subject,
	}

	var valid []common.Record
	for _, rec := range cash_alert.Parse(msg.Body, opts.Parse) {
		if rec.Valid {
			valid = append(valid, rec)
		} else {
			result.Discarded++
		}
	}
	log.Debug().Int("valid", len(valid)).Int("discarded", result.Discarded).Msg("parsed alert body")

	if len(valid) == 0 {
		return result, ErrNoValidTransactions
	}

	rows := cache.Join(ctx, valid)
	result.Deposits = make([]common.Deposit, len(valid))
	for i, rec := range valid {
		result.Deposits[i] = common.Deposit{
			Sequence:  i + 1,
			Record:    rec,
			Lookup:    rows[i],
			ValueDate: result.ValueDate,
		}
		if rows[i] == nil && rec.AccountCode != "" {
			log.Warn().Str("account_code", rec.AccountCode).Msg("no lookup row for account code")
		}
	}
	return result, nil
}

// ProcessReader reads a message from r, decoding it according to the extension of
// filename, and processes it.
func ProcessReader(ctx context.Context, r io.Reader, filename string, cache *lookup.Cache, opts Options) (Result, error) {
	msg, err := common.ReadMessage(r, filename)
	if err != nil {
		return Result{Source: filename}, err
	}
	result, err := ProcessBody(ctx, msg, cache, opts)
	result.Source = filename
	return result, err
}

func ProcessFile(ctx context.Context, path string, cache *lookup.Cache, opts Options) (Result, error) {
	if path == "" {
		return Result{}, errors.New("empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{Source: path}, err
	}
	defer f.Close()

	return ProcessReader(ctx, f, path, cache, opts)
}

// ProcessPath processes a single file or every supported file of a directory.
// Files without deposits are skipped with a warning; ErrNoValidTransactions is
// returned only when nothing at all was found.
func ProcessPath(ctx context.Context, path string, cache *lookup.Cache, opts Options) ([]Result, error) {
	log := logger.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		log.Info().Str("file", path).Msg("scanning")
		result, err := ProcessFile(ctx, path, cache, opts)
		if err != nil {
			return nil, err
		}
		return []Result{result}, nil
	}

	log.Info().Str("dir", path).Msg("scanning")
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if e.IsDir() || !common.IsSupported(e.Name()) {
			continue
		}

		file := filepath.Join(path, e.Name())
		result, err := ProcessFile(ctx, file, cache, opts)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("skipping")
			continue
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, ErrNoValidTransactions
	}
	return results, nil
}

// Transaction is the JSON view of a deposit.
type Transaction struct {
	Sequence    int                 `json:"sequence"`
	Amount      decimal.NullDecimal `json:"amount"`
	AmountRaw   string              `json:"amount_raw"`
	Currency    string              `json:"currency"`
	AccountCode string              `json:"account_code"`
	Valid       bool                `json:"valid"`
	Lookup      *common.LookupRow   `json:"lookup"`
}

// Output is the JSON document printed by the CLI and returned by the API.
type Output struct {
	Source       string        `json:"source"`
	ValueDate    string        `json:"value_date"`
	From         string        `json:"from,omitempty"`
	Subject      string        `json:"subject,omitempty"`
	Count        int           `json:"count"`
	Discarded    int           `json:"discarded"`
	Transactions []Transaction `json:"transactions"`
	Message      string        `json:"message,omitempty"`
}

// CreateOutput flattens a result; err is the error ProcessBody returned with it.
func CreateOutput(result Result, err error) Output {
	out := Output{
		Source:       result.Source,
		ValueDate:    result.ValueDate,
		From:         result.From,
		Subject:      result.Subject,
		Count:        len(result.Deposits),
		Discarded:    result.Discarded,
		Transactions: make([]Transaction, 0, len(result.Deposits)),
	}
	for _, d := range result.Deposits {
		out.Transactions = append(out.Transactions, Transaction{
			Sequence:    d.Sequence,
			Amount:      d.Record.Amount,
			AmountRaw:   d.Record.AmountRaw,
			Currency:    d.Record.Currency,
			AccountCode: d.Record.AccountCode,
			Valid:       d.Record.Valid,
			Lookup:      d.Lookup,
		})
	}

	switch {
	case errors.Is(err, ErrNoValidTransactions):
		out.Message = "No valid transaction blocks found"
	case err != nil:
		out.Message = err.Error()
	case result.MissingLookups() > 0:
		out.Message = fmt.Sprintf("%d of %d deposit(s) without lookup data", result.MissingLookups(), out.Count)
	}
	return out
}
