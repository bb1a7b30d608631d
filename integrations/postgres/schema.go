package postgres

import (
	"context"
	"fmt"
)

const ddl = `
-- Lookup table mirrored from the lookup CSV; position keeps the CSV order
CREATE TABLE IF NOT EXISTS lookup_rows (
    account_code VARCHAR(32) PRIMARY KEY,
    legal_entity VARCHAR(255) NOT NULL DEFAULT '',
    client_code VARCHAR(255) NOT NULL DEFAULT '',
    client_master_account VARCHAR(255) NOT NULL DEFAULT '',
    client_sub_account VARCHAR(255) NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ DEFAULT NOW()
);

-- One row per processed alert, natural key is the source file
CREATE TABLE IF NOT EXISTS extractions (
    id UUID PRIMARY KEY,
    source VARCHAR(1024) NOT NULL,
    value_date DATE NOT NULL,
    sender VARCHAR(255) DEFAULT '',
    subject TEXT DEFAULT '',
    discarded INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),

    UNIQUE(source)
);

-- Deposits extracted from an alert, in block order
CREATE TABLE IF NOT EXISTS deposits (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    extraction_id UUID NOT NULL REFERENCES extractions(id) ON DELETE CASCADE,
    sequence INTEGER NOT NULL,
    amount NUMERIC(18,4),
    amount_raw VARCHAR(64) NOT NULL DEFAULT '',
    currency CHAR(3) NOT NULL,
    account_code VARCHAR(32) NOT NULL DEFAULT '',
    legal_entity VARCHAR(255) NOT NULL DEFAULT '',
    client_code VARCHAR(255) NOT NULL DEFAULT '',
    client_master_account VARCHAR(255) NOT NULL DEFAULT '',
    client_sub_account VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ DEFAULT NOW(),

    UNIQUE(extraction_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_extractions_value_date ON extractions(value_date);
CREATE INDEX IF NOT EXISTS idx_deposits_extraction_id ON deposits(extraction_id);
CREATE INDEX IF NOT EXISTS idx_deposits_account_code ON deposits(account_code) WHERE account_code != '';
`

// migrateDDL adds columns introduced after the first release
const migrateDDL = `
-- Record whether a deposit was matched against the lookup table
DO $$ BEGIN
    IF NOT EXISTS (SELECT 1 FROM information_schema.columns
                   WHERE table_name = 'deposits' AND column_name = 'matched') THEN
        ALTER TABLE deposits ADD COLUMN matched BOOLEAN NOT NULL DEFAULT false;
    END IF;
END $$;
`

// EnsureSchema creates tables if they don't exist and runs migrations
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = db.Pool.Exec(ctx, migrateDDL)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
