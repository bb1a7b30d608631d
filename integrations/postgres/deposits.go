package postgres

import (
	"context"
	"fmt"

	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/jackc/pgx/v5"
)

// depositValues flattens a deposit into the deposits columns after extraction_id
func depositValues(d common.Deposit) []any {
	var lookupRow common.LookupRow
	if d.Lookup != nil {
		lookupRow = *d.Lookup
	}
	return []any{
		d.Sequence,
		d.Record.Amount,
		d.Record.AmountRaw,
		d.Record.Currency,
		d.Record.AccountCode,
		lookupRow.LegalEntity,
		lookupRow.ClientCode,
		lookupRow.ClientMasterAccount,
		lookupRow.ClientSubAccount,
		d.Lookup != nil,
	}
}

// CreateDeposits bulk inserts the deposits of an extraction
func (db *DB) CreateDeposits(ctx context.Context, extractionID string, deposits []common.Deposit) error {
	if len(deposits) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, d := range deposits {
		args := append([]any{extractionID}, depositValues(d)...)
		batch.Queue(`
			INSERT INTO deposits (
				extraction_id, sequence, amount, amount_raw, currency, account_code,
				legal_entity, client_code, client_master_account, client_sub_account, matched
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, args...)
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, d := range deposits {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert deposit %d: %w", d.Sequence, err)
		}
	}

	return nil
}
