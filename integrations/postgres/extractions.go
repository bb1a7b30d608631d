package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExtractionExists checks if an alert was already imported using its source as natural key
func (db *DB) ExtractionExists(ctx context.Context, source string) (bool, string, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `
		SELECT id FROM extractions WHERE source = $1
	`, source).Scan(&id)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("failed to check extraction: %w", err)
	}

	return true, id, nil
}

// CreateExtraction inserts the header row of an imported alert and returns its id
func (db *DB) CreateExtraction(ctx context.Context, result extractor.Result) (string, error) {
	valueDate, err := common.ParseValueDate(result.ValueDate)
	if err != nil {
		return "", fmt.Errorf("invalid value date %q: %w", result.ValueDate, err)
	}

	id := uuid.New()
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO extractions (id, source, value_date, sender, subject, discarded)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id.String(), result.Source, valueDate, result.From, result.Subject, result.Discarded)
	if err != nil {
		return "", fmt.Errorf("failed to create extraction: %w", err)
	}

	return id.String(), nil
}

// DeleteExtraction removes an extraction and its deposits (cascade)
func (db *DB) DeleteExtraction(ctx context.Context, extractionID string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM extractions WHERE id = $1`, extractionID)
	if err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	return nil
}
