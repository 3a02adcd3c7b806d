// Package reconciliation produces the reported-vs-reference price
// extract: the configured query's rowset round-tripped verbatim to CSV.
package reconciliation

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/dbutils"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/tabular"
)

const OutputFileName = "reconciliation.csv"

type ReconcileRunner struct {
	db        *bun.DB
	outputDir string
	log       *logrus.Logger
}

func NewReconcileRunner(db *bun.DB, log *logrus.Logger, outputDir string) *ReconcileRunner {
	return &ReconcileRunner{db: db, outputDir: outputDir, log: log}
}

func (r *ReconcileRunner) Run() error {
	sqlPath := filepath.Join(config.CurrentFundsConfig().SQLDir, config.CurrentFundsConfig().ReconciliationSQL)
	outputFile := filepath.Join(r.outputDir, OutputFileName)

	table, err := ReconcilePrices(context.Background(), r.db, sqlPath, outputFile)
	if err != nil {
		return err
	}

	r.log.Infof("Reconciliation report with %d rows written to %s", table.NumRows(), outputFile)

	return nil
}

func (r *ReconcileRunner) Close() error {
	return r.db.Close()
}

// ReconcilePrices runs the query from sqlPath and writes the result to
// outputFile without transformation or filtering; column order and
// values pass through as queried. The written table is returned.
func ReconcilePrices(ctx context.Context, db *bun.DB, sqlPath, outputFile string) (*tabular.Table, error) {
	query, err := dbutils.ReadSQLFile(sqlPath)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reconciliation query failed: %w", err)
	}
	defer rows.Close()

	table, err := tabular.FromRows(rows)
	if err != nil {
		return nil, err
	}

	if err := table.WriteCSVFile(outputFile); err != nil {
		return nil, err
	}

	return table, nil
}
