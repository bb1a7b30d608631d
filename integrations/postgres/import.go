package postgres

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/aqlanhadi/cashalert/logger"
	"github.com/aqlanhadi/cashalert/lookup"
	"github.com/schollz/progressbar/v3"
)

// ImportResult tracks the outcome of an import operation
type ImportResult struct {
	Processed int
	Skipped   int
	Failed    int
	Deposits  int
	Errors    []string
}

func (r *ImportResult) add(o ImportResult) {
	r.Processed += o.Processed
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Deposits += o.Deposits
	r.Errors = append(r.Errors, o.Errors...)
}

// ImportOptions configures the import behavior
type ImportOptions struct {
	Force    bool // Replace alerts that were already imported
	Extract  extractor.Options
	Cache    *lookup.Cache
	Progress io.Writer // Progress bar output for directory imports, nil to disable
}

// extractionStore is the subset of DB used by the importer
type extractionStore interface {
	ExtractionExists(ctx context.Context, source string) (bool, string, error)
	CreateExtraction(ctx context.Context, result extractor.Result) (string, error)
	DeleteExtraction(ctx context.Context, extractionID string) error
	CreateDeposits(ctx context.Context, extractionID string, deposits []common.Deposit) error
}

// importFile extracts one alert file and stores its deposits
func importFile(ctx context.Context, store extractionStore, filePath string, opts ImportOptions) ImportResult {
	log := logger.FromContext(ctx)
	fileName := filepath.Base(filePath)
	fail := func(format string, args ...any) ImportResult {
		return ImportResult{Failed: 1, Errors: []string{fileName + ": " + fmt.Sprintf(format, args...)}}
	}

	result, err := extractor.ProcessFile(ctx, filePath, opts.Cache, opts.Extract)
	if err != nil {
		return fail("%v", err)
	}

	exists, existingID, err := store.ExtractionExists(ctx, result.Source)
	if err != nil {
		return fail("check error: %v", err)
	}
	if exists && !opts.Force {
		log.Debug().Str("file", fileName).Msg("SKIP already imported")
		return ImportResult{Skipped: 1}
	}
	if exists {
		if err := store.DeleteExtraction(ctx, existingID); err != nil {
			return fail("delete error: %v", err)
		}
	}

	extractionID, err := store.CreateExtraction(ctx, result)
	if err != nil {
		return fail("extraction error: %v", err)
	}

	if err := store.CreateDeposits(ctx, extractionID, result.Deposits); err != nil {
		// Rollback by deleting the extraction
		_ = store.DeleteExtraction(ctx, extractionID)
		return fail("deposits error: %v", err)
	}

	log.Debug().Str("file", fileName).Int("deposits", len(result.Deposits)).Msg("OK")
	return ImportResult{Processed: 1, Deposits: len(result.Deposits)}
}

// importDirectory processes every supported alert file in a directory
func importDirectory(ctx context.Context, store extractionStore, dirPath string, opts ImportOptions) (*ImportResult, error) {
	log := logger.FromContext(ctx)
	result := &ImportResult{}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !common.IsSupported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dirPath, e.Name()))
	}

	log.Info().Str("dir", dirPath).Int("files", len(files)).Msg("scanning")

	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing alerts"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(progress)
		}),
	)

	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fileResult := importFile(ctx, store, filePath, opts)
		result.add(fileResult)
		for _, msg := range fileResult.Errors {
			log.Warn().Msg("FAIL " + msg)
		}

		if err := bar.Add(1); err != nil {
			log.Debug().Err(err).Msg("failed to update progress bar")
		}
	}
	_ = bar.Finish()

	return result, nil
}

// Import handles both file and directory imports
func (db *DB) Import(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	return importPath(ctx, db, path, opts)
}

func importPath(ctx context.Context, store extractionStore, path string, opts ImportOptions) (*ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return importDirectory(ctx, store, path, opts)
	}

	result := importFile(ctx, store, path, opts)
	return &result, nil
}
