package performance

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
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

func setupPerformanceConfig(t *testing.T, dir string) {
	t.Helper()

	funds := config.CurrentFundsConfig()
	funds.SQLDir = dir
	funds.PerformanceSQL = "funds_query.sql"
	funds.Influx.Enabled = false

	require.NoError(t, os.WriteFile(filepath.Join(dir, "funds_query.sql"),
		[]byte("SELECT * FROM financial_data"), 0o644))
}

func seedFundsTable(t *testing.T, db *bun.DB) {
	t.Helper()

	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE financial_data (
			SYMBOL TEXT,
			FUND_NAME TEXT,
			MARKET_VALUE REAL,
			REALISED_P_L REAL,
			Month TEXT
		)`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `
		INSERT INTO financial_data VALUES
			('AAPL', 'FundA', 1000, 50, '2023-01-01'),
			('MSFT', 'FundA', 1500, 100, '2023-01-01'),
			('AAPL', 'FundA', 2000, 80, '2023-02-01'),
			('MSFT', 'FundA', 1800, 90, '2023-02-01'),
			('GOOG', 'FundB', 1200, 40, '2023-01-01'),
			('TSLA', 'FundB', 1600, 70, '2023-01-01'),
			('GOOG', 'FundB', 2500, 100, '2023-02-01'),
			('TSLA', 'FundB', 3000, 120, '2023-02-01')`)
	require.NoError(t, err)
}

func TestPerformanceRunnerWritesReport(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	setupPerformanceConfig(t, dir)
	seedFundsTable(t, db)

	runner := NewPerformanceRunner(db, logrus.New(), dir)
	require.NoError(t, runner.Run())

	report, err := tabular.ReadCSVFile(filepath.Join(dir, OutputFileName))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"FUND_NAME", "Month", "Fund_MV_end", "Realized_P_L", "Fund_MV_start", "Rate_of_Return"},
		report.Columns)

	// January is skipped (no prior month), FundB wins February:
	// FundA: (3800-2500+170)/2500 = 0.588
	// FundB: (5500-2800+220)/2800 ~ 1.043
	require.Equal(t, 1, report.NumRows())
	assert.Equal(t, "FundB", report.Rows[0][0])
	assert.Equal(t, "2023-02-01", report.Rows[0][1])
	assert.Equal(t, "5500", report.Rows[0][2])
	assert.Equal(t, "2800", report.Rows[0][4])
}

func TestPerformanceRunnerIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	setupPerformanceConfig(t, dir)
	seedFundsTable(t, db)

	runner := NewPerformanceRunner(db, logrus.New(), dir)

	require.NoError(t, runner.Run())
	first, err := os.ReadFile(filepath.Join(dir, OutputFileName))
	require.NoError(t, err)

	require.NoError(t, runner.Run())
	second, err := os.ReadFile(filepath.Join(dir, OutputFileName))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPerformanceRunnerEmptyResultIsSoftFailure(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	setupPerformanceConfig(t, dir)

	_, err := db.ExecContext(context.Background(), `
		CREATE TABLE financial_data (
			SYMBOL TEXT,
			FUND_NAME TEXT,
			MARKET_VALUE REAL,
			REALISED_P_L REAL,
			Month TEXT
		)`)
	require.NoError(t, err)

	runner := NewPerformanceRunner(db, logrus.New(), dir)
	require.NoError(t, runner.Run())

	// no report is written for an empty rowset
	_, err = os.Stat(filepath.Join(dir, OutputFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestPerformanceRunnerMissingSQLFileIsFatal(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()
	setupPerformanceConfig(t, dir)
	config.CurrentFundsConfig().PerformanceSQL = "missing.sql"

	runner := NewPerformanceRunner(db, logrus.New(), dir)

	err := runner.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SQL file not found")
}
