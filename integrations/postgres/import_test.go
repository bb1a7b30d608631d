package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/aqlanhadi/cashalert/extractor/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alertHTML = "<table>" +
	"<tr><td>Amount: 30,000.00 USD</td><td>AC 472852G</td></tr>" +
	"<tr><td>Amount: 250 GBP</td><td>/FFC/222222B</td></tr>" +
	"</table>"

type fakeStore struct {
	extractions map[string]extractor.Result // by id
	deposits    map[string][]common.Deposit
	nextID      int
	depositErr  error
	deleted     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		extractions: map[string]extractor.Result{},
		deposits:    map[string][]common.Deposit{},
	}
}

func (f *fakeStore) ExtractionExists(ctx context.Context, source string) (bool, string, error) {
	for id, r := range f.extractions {
		if r.Source == source {
			return true, id, nil
		}
	}
	return false, "", nil
}

func (f *fakeStore) CreateExtraction(ctx context.Context, result extractor.Result) (string, error) {
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	f.extractions[id] = result
	return id, nil
}

func (f *fakeStore) DeleteExtraction(ctx context.Context, extractionID string) error {
	f.deleted = append(f.deleted, extractionID)
	delete(f.extractions, extractionID)
	delete(f.deposits, extractionID)
	return nil
}

func (f *fakeStore) CreateDeposits(ctx context.Context, extractionID string, deposits []common.Deposit) error {
	if f.depositErr != nil {
		return f.depositErr
	}
	f.deposits[extractionID] = deposits
	return nil
}

func writeAlert(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestImportFile_StoresDeposits(t *testing.T) {
	store := newFakeStore()
	path := writeAlert(t, t.TempDir(), "alert.html", alertHTML)

	result := importFile(context.Background(), store, path, ImportOptions{Extract: extractor.DefaultOptions()})

	assert.Equal(t, ImportResult{Processed: 1, Deposits: 2}, result)
	require.Len(t, store.deposits["id-1"], 2)
	assert.Equal(t, "472852G", store.deposits["id-1"][0].Record.AccountCode)
	assert.Equal(t, path, store.extractions["id-1"].Source)
}

func TestImportFile_SkipsExistingUnlessForced(t *testing.T) {
	store := newFakeStore()
	path := writeAlert(t, t.TempDir(), "alert.html", alertHTML)
	opts := ImportOptions{Extract: extractor.DefaultOptions()}

	importFile(context.Background(), store, path, opts)
	result := importFile(context.Background(), store, path, opts)
	assert.Equal(t, ImportResult{Skipped: 1}, result)

	opts.Force = true
	result = importFile(context.Background(), store, path, opts)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []string{"id-1"}, store.deleted)
	assert.Len(t, store.extractions, 1)
}

func TestImportFile_RollsBackOnDepositError(t *testing.T) {
	store := newFakeStore()
	store.depositErr = errors.New("constraint violation")
	path := writeAlert(t, t.TempDir(), "alert.html", alertHTML)

	result := importFile(context.Background(), store, path, ImportOptions{Extract: extractor.DefaultOptions()})

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "alert.html: deposits error")
	assert.Empty(t, store.extractions)
}

func TestImportFile_NoDeposits(t *testing.T) {
	store := newFakeStore()
	path := writeAlert(t, t.TempDir(), "note.txt", "nothing here")

	result := importFile(context.Background(), store, path, ImportOptions{Extract: extractor.DefaultOptions()})

	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Errors[0], "no valid transaction blocks found")
	assert.Empty(t, store.extractions)
}

func TestImportDirectory(t *testing.T) {
	store := newFakeStore()
	dir := t.TempDir()
	writeAlert(t, dir, "a.html", alertHTML)
	writeAlert(t, dir, "b.eml", "Subject: x\r\nContent-Type: text/plain\r\n\r\nAmount: 5 EUR AC 111111A\r\n")
	writeAlert(t, dir, "c.txt", "nothing here")
	writeAlert(t, dir, "lookup.csv", "AccountCode\n111111A\n")

	var progress bytes.Buffer
	result, err := importDirectory(context.Background(), store, dir, ImportOptions{
		Extract:  extractor.DefaultOptions(),
		Progress: &progress,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 3, result.Deposits)
	assert.Contains(t, progress.String(), "Importing alerts")
}

func TestImportPath_Missing(t *testing.T) {
	_, err := importPath(context.Background(), newFakeStore(), filepath.Join(t.TempDir(), "missing"), ImportOptions{})
	assert.Error(t, err)
}

func TestUniqueLookupRows(t *testing.T) {
	rows := uniqueLookupRows([]common.LookupRow{
		{AccountCode: " 472852g ", LegalEntity: "LE01"},
		{AccountCode: "", LegalEntity: "BLANK"},
		{AccountCode: "472852G", LegalEntity: "LE99"},
		{AccountCode: "111111A", LegalEntity: "LE02"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, common.LookupRow{AccountCode: "472852G", LegalEntity: "LE01"}, rows[0])
	assert.Equal(t, "111111A", rows[1].AccountCode)
}

func TestDepositValues(t *testing.T) {
	d := common.Deposit{Sequence: 2, Record: common.Record{Currency: "USD", AccountCode: "472852G"}}

	values := depositValues(d)
	require.Len(t, values, 10)
	assert.Equal(t, 2, values[0])
	assert.Equal(t, "", values[5])
	assert.Equal(t, false, values[9])

	d.Lookup = &common.LookupRow{LegalEntity: "LE01"}
	values = depositValues(d)
	assert.Equal(t, "LE01", values[5])
	assert.Equal(t, true, values[9])
}

func TestConnString(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Setenv("DATABASE_URL", "")

	_, err := ConnString("")
	assert.ErrorIs(t, err, ErrNoConnString)

	t.Setenv("DATABASE_URL", "postgres://env")
	s, err := ConnString("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", s)

	viper.Set("database.url", "postgres://config")
	s, _ = ConnString("")
	assert.Equal(t, "postgres://config", s)

	s, _ = ConnString(" postgres://flag ")
	assert.Equal(t, "postgres://flag", s)
}
