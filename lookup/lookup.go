package lookup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/logger"
	"github.com/spf13/viper"
)

// Lookup CSV header names.
const (
	ColAccountCode         = "AccountCode"
	ColLegalEntity         = "LegalEntity"
	ColClientCode          = "ClientCode"
	ColClientMasterAccount = "ClientMasterAccount"
	ColClientSubAccount    = "ClientSubAccount"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"

	DefaultPath = "./data/Cash_Deposit_Lookup.csv"
)

// ErrUnavailable wraps every failure to obtain the lookup table.
var ErrUnavailable = errors.New("lookup table unavailable")

// Loader produces the full lookup table.
type Loader interface {
	Load(ctx context.Context) ([]common.LookupRow, error)
}

type Config struct {
	Source string
	Path   string
}

func DefaultConfig() Config {
	return Config{Source: SourceCSV, Path: DefaultPath}
}

// LoadConfig reads the lookup.* keys.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if s := strings.ToLower(strings.TrimSpace(viper.GetString("lookup.source"))); s != "" {
		cfg.Source = s
	}
	if p := viper.GetString("lookup.path"); p != "" {
		cfg.Path = p
	}
	return cfg
}

// ReadCSV parses a lookup table. Header names and cells are trimmed, quoted fields may
// contain commas and short rows leave the missing columns empty.
func ReadCSV(r io.Reader) ([]common.LookupRow, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	if _, ok := index[ColAccountCode]; !ok {
		return nil, fmt.Errorf("invalid lookup format: missing %s column", ColAccountCode)
	}

	cell := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []common.LookupRow
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		rows = append(rows, common.LookupRow{
			AccountCode:         cell(record, ColAccountCode),
			LegalEntity:         cell(record, ColLegalEntity),
			ClientCode:          cell(record, ColClientCode),
			ClientMasterAccount: cell(record, ColClientMasterAccount),
			ClientSubAccount:    cell(record, ColClientSubAccount),
		})
	}

	return rows, nil
}

// CSVLoader loads the table from a file on disk.
type CSVLoader struct {
	Path string
}

func (l CSVLoader) Load(ctx context.Context) ([]common.LookupRow, error) {
	if l.Path == "" {
		return nil, errors.New("no lookup path configured")
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("path", l.Path).Int("rows", len(rows)).Msg("loaded lookup table")
	return rows, nil
}

// Table is an immutable, ordered lookup table.
type Table struct {
	rows []common.LookupRow
}

func NewTable(rows []common.LookupRow) *Table {
	return &Table{rows: rows}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Find returns the first row whose AccountCode equals code, ignoring case and
// surrounding whitespace. An empty code never matches.
func (t *Table) Find(code string) *common.LookupRow {
	needle := strings.TrimSpace(code)
	if t == nil || needle == "" {
		return nil
	}
	for i := range t.rows {
		if strings.EqualFold(strings.TrimSpace(t.rows[i].AccountCode), needle) {
			row := t.rows[i]
			return &row
		}
	}
	return nil
}

// Cache loads the table at most once per process. A failed load is not remembered,
// so the next call tries again.
type Cache struct {
	loader Loader

	mu    sync.Mutex
	table *Table
}

func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Get returns the cached table, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table != nil {
		return c.table, nil
	}
	if c.loader == nil {
		return nil, fmt.Errorf("%w: no loader configured", ErrUnavailable)
	}

	rows, err := c.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.table = NewTable(rows)
	return c.table, nil
}

// Join returns one lookup row per record, aligned by index. Records without a
// matching row, or every record when the table cannot be loaded, get nil.
func (c *Cache) Join(ctx context.Context, records []common.Record) []*common.LookupRow {
	out := make([]*common.LookupRow, len(records))
	if c == nil {
		return out
	}

	table, err := c.Get(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("continuing without lookup data")
		return out
	}
	for i, rec := range records {
		out[i] = table.Find(rec.AccountCode)
	}
	return out
}

// NewLoader returns the CSV loader for cfg. Other sources are wired by the caller.
func NewLoader(cfg Config) (Loader, error) {
	switch cfg.Source {
	case SourceCSV, "":
		return CSVLoader{Path: cfg.Path}, nil
	}
	return nil, fmt.Errorf("unsupported lookup source %q", cfg.Source)
}
