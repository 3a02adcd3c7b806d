// Package loader ingests fund-accounting CSV extracts into the shared
// funds table, labelling every row with the month and fund name
// recovered from the source filename.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/dbutils"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/tabular"
)

const defaultBatchSize = 500

type LoadRunner struct {
	db     *bun.DB
	csvDir string
	table  string
	log    *logrus.Logger
}

func NewLoadRunner(db *bun.DB, log *logrus.Logger, csvDir string) *LoadRunner {
	return &LoadRunner{
		db:     db,
		csvDir: csvDir,
		table:  config.CurrentFundsConfig().SQL.FundsTable,
		log:    log,
	}
}

// Run executes the configured DDL scripts and then loads every *.csv
// file in the directory, one at a time. A file that cannot be read or
// inserted is logged and skipped; it never aborts the batch.
func (r *LoadRunner) Run() error {
	ctx := context.Background()

	if r.table == "" {
		return fmt.Errorf("funds table name is not configured")
	}

	sqlDir := config.CurrentFundsConfig().SQLDir
	ddlFiles := []string{
		config.CurrentFundsConfig().MasterReferenceDDL,
		config.CurrentFundsConfig().FundsTableDDL,
	}

	for _, ddl := range ddlFiles {
		if ddl == "" {
			continue
		}

		if err := dbutils.ExecScriptFile(ctx, r.db, filepath.Join(sqlDir, ddl)); err != nil {
			return err
		}
	}

	files, err := filepath.Glob(filepath.Join(r.csvDir, "*.csv"))
	if err != nil {
		return fmt.Errorf("failed to scan csv directory %s: %w", r.csvDir, err)
	}

	sort.Strings(files)

	for _, path := range files {
		filename := filepath.Base(path)

		table, err := tabular.ReadCSVFile(path)
		if err != nil {
			r.log.WithFields(logrus.Fields{"file": filename}).Warnf("Skipping file, could not read CSV: %v", err)
			continue
		}

		labeled := LabelTable(table, filename)

		if err := r.insertRows(ctx, labeled); err != nil {
			r.log.WithFields(logrus.Fields{"file": filename}).Warnf("Failed to insert rows: %v", err)
			continue
		}

		r.log.Infof("Inserted %d rows from %s into %s", labeled.NumRows(), filename, r.table)
	}

	return nil
}

// insertRows appends the labelled rows to the funds table in batches.
// Insert only: there is no upsert and no dedup against rows loaded from
// other files.
func (r *LoadRunner) insertRows(ctx context.Context, table *tabular.Table) error {
	batchSize := config.CurrentFundsConfig().SQL.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	records := make([]map[string]interface{}, 0, table.NumRows())

	for _, row := range table.Rows {
		record := make(map[string]interface{}, len(table.Columns))
		for i, column := range table.Columns {
			record[column] = row[i]
		}

		records = append(records, record)
	}

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := records[start:end]

		_, err := r.db.NewInsert().Model(&batch).Table(r.table).Exec(ctx)
		if err != nil {
			return fmt.Errorf("error writing to sql: %w", err)
		}
	}

	return nil
}

func (r *LoadRunner) Close() error {
	return r.db.Close()
}
