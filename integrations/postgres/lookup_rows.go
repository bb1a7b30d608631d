package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/lookup"
	"github.com/jackc/pgx/v5"
)

var _ lookup.Loader = (*DB)(nil)

// Load returns the lookup table in its original CSV order.
func (db *DB) Load(ctx context.Context) ([]common.LookupRow, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT account_code, legal_entity, client_code, client_master_account, client_sub_account
		FROM lookup_rows
		ORDER BY position, account_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup rows: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (common.LookupRow, error) {
		var r common.LookupRow
		err := row.Scan(&r.AccountCode, &r.LegalEntity, &r.ClientCode, &r.ClientMasterAccount, &r.ClientSubAccount)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup rows: %w", err)
	}
	return out, nil
}

// uniqueLookupRows keeps the first row per account code (case-insensitive) and drops
// rows without a code, mirroring how Table.Find resolves duplicates.
func uniqueLookupRows(rows []common.LookupRow) []common.LookupRow {
	seen := make(map[string]bool, len(rows))
	out := make([]common.LookupRow, 0, len(rows))
	for _, r := range rows {
		key := strings.ToUpper(strings.TrimSpace(r.AccountCode))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		r.AccountCode = key
		out = append(out, r)
	}
	return out
}

// UpsertLookupRows stores rows, replacing existing ones by account code. It returns
// the number of rows written.
func (db *DB) UpsertLookupRows(ctx context.Context, rows []common.LookupRow) (int, error) {
	unique := uniqueLookupRows(rows)
	if len(unique) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i, r := range unique {
		batch.Queue(`
			INSERT INTO lookup_rows (
				account_code, legal_entity, client_code, client_master_account, client_sub_account, position
			) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (account_code) DO UPDATE
			SET legal_entity = EXCLUDED.legal_entity,
			    client_code = EXCLUDED.client_code,
			    client_master_account = EXCLUDED.client_master_account,
			    client_sub_account = EXCLUDED.client_sub_account,
			    position = EXCLUDED.position,
			    updated_at = NOW()
		`, r.AccountCode, r.LegalEntity, r.ClientCode, r.ClientMasterAccount, r.ClientSubAccount, i)
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, r := range unique {
		if _, err := br.Exec(); err != nil {
			return 0, fmt.Errorf("failed to upsert lookup row %s: %w", r.AccountCode, err)
		}
	}

	return len(unique), nil
}
