package common

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is the result of parsing one transaction block.
type Record struct {
	Amount      decimal.NullDecimal `json:"amount"`
	Currency    string              `json:"currency,omitempty"`
	AmountRaw   string              `json:"amount_raw,omitempty"`
	AccountCode string              `json:"account_code,omitempty"`
	Valid       bool                `json:"valid"`
}

// LookupRow is one row of the account lookup table, keyed by AccountCode.
type LookupRow struct {
	AccountCode         string `json:"account_code"`
	LegalEntity         string `json:"legal_entity"`
	ClientCode          string `json:"client_code"`
	ClientMasterAccount string `json:"client_master_account"`
	ClientSubAccount    string `json:"client_sub_account"`
}

// Deposit is a valid record joined with its (optional) lookup row.
type Deposit struct {
	Sequence  int        `json:"sequence"`
	Record    Record     `json:"record"`
	Lookup    *LookupRow `json:"lookup,omitempty"`
	ValueDate string     `json:"value_date"`
}

// Message is an email as read from disk or an upload.
type Message struct {
	Body    string
	Date    time.Time
	From    string
	Subject string
}
