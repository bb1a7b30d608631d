package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/spf13/viper"
)

// Headers are the 17 columns of a cash deposit booking file, in order.
var Headers = []string{
	"TRADE_SUBTYPE",
	"LEGAL_ENTITY_CODE",
	"INTERMEDIARY_BANK",
	"VALUE_DATE",
	"CLIENT_CODE",
	"CLIENT_MASTER_ACCOUNT_NAME",
	"CLIENT_SUB_ACCOUNT",
	"SIDE",
	"AMOUNT",
	"CURRENCY",
	"NOSTRO_BANK",
	"NOSTRO_CODE",
	"COMMENT",
	"FILE_TYPE",
	"COUNTERPARTY_BIC",
	"COUNTERPARTY_ACCOUNT_NUMBER",
	"CUSTODY",
}

// Column indices into Headers.
const (
	colTradeSubtype = iota
	colLegalEntity
	colIntermediaryBank
	colValueDate
	colClientCode
	colClientMaster
	colClientSub
	colSide
	colAmount
	colCurrency
	colNostroBank
	colNostroCode
	colComment
	colFileType
	colCounterpartyBIC
	colCounterpartyAccount
	colCustody
	columnCount
)

const (
	filePrefix     = "cash_deposit"
	fileDateLayout = "02-01-2006"
	nostroCurrency = "USD"
)

// Nostro selects the settlement bank and account prefix. Deposits in USD settle
// through a dedicated USD nostro.
type Nostro struct {
	DefaultBank   string
	DefaultPrefix string
	USDBank       string
	USDPrefix     string
}

type Config struct {
	Dir             string
	TradeSubtype    string
	Side            string
	Comment         string
	FileType        string
	CounterpartyBIC string
	Custody         string
	Nostro          Nostro
}

func DefaultConfig() Config {
	return Config{
		Dir:             "./out",
		TradeSubtype:    "Client Cash",
		Side:            "CREDIT",
		Comment:         "Cash Deposit",
		FileType:        "CASH",
		CounterpartyBIC: "XXXXXXXXXXX",
		Custody:         "TRUE",
		Nostro: Nostro{
			DefaultBank:   "BAML",
			DefaultPrefix: "CS-SEG-BOAN-IFE11025-",
			USDBank:       "BAML1",
			USDPrefix:     "CS-SEG-BOANY-IFE11025-",
		},
	}
}

// LoadConfig reads the export.* keys; unset keys keep their defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	set := func(dst *string, key string) {
		if viper.IsSet(key) {
			*dst = viper.GetString(key)
		}
	}

	set(&cfg.Dir, "export.dir")
	set(&cfg.TradeSubtype, "export.trade_subtype")
	set(&cfg.Side, "export.side")
	set(&cfg.Comment, "export.comment")
	set(&cfg.FileType, "export.file_type")
	set(&cfg.CounterpartyBIC, "export.counterparty_bic")
	set(&cfg.Custody, "export.custody")
	set(&cfg.Nostro.DefaultBank, "export.nostro.default_bank")
	set(&cfg.Nostro.DefaultPrefix, "export.nostro.default_prefix")
	set(&cfg.Nostro.USDBank, "export.nostro.usd_bank")
	set(&cfg.Nostro.USDPrefix, "export.nostro.usd_prefix")
	return cfg
}

// BuildRow maps a deposit onto the booking columns. Lookup columns are blank when
// the deposit has no lookup row and AMOUNT is blank when no amount was parsed.
func BuildRow(d common.Deposit, cfg Config) []string {
	row := make([]string, columnCount)

	bank, prefix := cfg.Nostro.DefaultBank, cfg.Nostro.DefaultPrefix
	if d.Record.Currency == nostroCurrency {
		bank, prefix = cfg.Nostro.USDBank, cfg.Nostro.USDPrefix
	}

	row[colTradeSubtype] = cfg.TradeSubtype
	row[colValueDate] = d.ValueDate
	row[colSide] = cfg.Side
	if d.Record.Amount.Valid {
		row[colAmount] = d.Record.Amount.Decimal.StringFixed(2)
	}
	row[colCurrency] = d.Record.Currency
	row[colNostroBank] = bank
	row[colNostroCode] = prefix + d.Record.Currency
	row[colComment] = cfg.Comment
	row[colFileType] = cfg.FileType
	row[colCounterpartyBIC] = cfg.CounterpartyBIC
	row[colCustody] = cfg.Custody

	if d.Lookup != nil {
		row[colLegalEntity] = d.Lookup.LegalEntity
		row[colClientCode] = d.Lookup.ClientCode
		row[colClientMaster] = d.Lookup.ClientMasterAccount
		row[colClientSub] = d.Lookup.ClientSubAccount
	}
	return row
}

// Write emits the header followed by rows as CRLF-terminated CSV.
func Write(w io.Writer, rows [][]string) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.UseCRLF = true

	if err := csvWriter.Write(Headers); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// FileName names the booking file of the i-th (0-based) of total deposits, e.g.
// cash_deposit_472852G_USD_12-03-2025.csv. A two-digit sequence suffix is added
// when one alert produced more than one deposit.
func FileName(d common.Deposit, i, total int) string {
	code := d.Record.AccountCode
	if code == "" {
		code = fmt.Sprintf("UNKNOWN_%d", i+1)
	}
	ccy := d.Record.Currency
	if ccy == "" {
		ccy = "CCY"
	}

	date := strings.ReplaceAll(d.ValueDate, "/", "-")
	if t, err := common.ParseValueDate(d.ValueDate); err == nil {
		date = t.Format(fileDateLayout)
	}

	name := fmt.Sprintf("%s_%s_%s_%s", filePrefix, sanitize(code), sanitize(ccy), sanitize(date))
	if total > 1 {
		name = fmt.Sprintf("%s_%02d", name, i+1)
	}
	return name + ".csv"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, s)
}

// WriteFiles writes one booking file per deposit into dir and returns their paths.
func WriteFiles(dir string, deposits []common.Deposit, cfg Config) ([]string, error) {
	if dir == "" {
		dir = cfg.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(deposits))
	for i, d := range deposits {
		path := filepath.Join(dir, FileName(d, i, len(deposits)))
		if err := writeFile(path, BuildRow(d, cfg)); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, row []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, [][]string{row}); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
