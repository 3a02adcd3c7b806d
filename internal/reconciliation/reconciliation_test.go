package reconciliation

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/tabular"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	return db
}

func TestReconcilePricesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE price_comparison (
			SYMBOL TEXT,
			REPORTED_PRICE REAL,
			REFERENCE_PRICE REAL,
			SOURCE TEXT
		)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `
		INSERT INTO price_comparison VALUES
			('AAPL', 174.5, 174.5, 'equity'),
			('GB00B0YQ5W04', 101.25, 101.3, 'bond'),
			('MSFT', 390.1, NULL, 'equity')`)
	require.NoError(t, err)

	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "reconciliation.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte("SELECT * FROM price_comparison"), 0o644))

	outputFile := filepath.Join(dir, OutputFileName)

	table, err := ReconcilePrices(ctx, db, sqlPath, outputFile)
	require.NoError(t, err)

	// column order and rows pass through untouched
	assert.Equal(t, []string{"SYMBOL", "REPORTED_PRICE", "REFERENCE_PRICE", "SOURCE"}, table.Columns)
	require.Equal(t, 3, table.NumRows())

	// the written file re-reads to the same rows, cell for cell
	written, err := tabular.ReadCSVFile(outputFile)
	require.NoError(t, err)

	assert.Equal(t, table.Columns, written.Columns)
	require.Equal(t, table.NumRows(), written.NumRows())

	for i, row := range table.Rows {
		for j, v := range row {
			assert.Equal(t, tabular.FormatValue(v), written.Rows[i][j])
		}
	}
}

func TestReconcilePricesMissingSQLFileIsFatal(t *testing.T) {
	db := newTestDB(t)

	_, err := ReconcilePrices(context.Background(), db, filepath.Join(t.TempDir(), "missing.sql"), "unused.csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL file not found")
}
