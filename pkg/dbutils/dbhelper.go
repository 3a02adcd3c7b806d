// Package dbutils creates the shared bun database handle used by every
// job runner and executes DDL/query scripts supplied as .sql files.
package dbutils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"k8s.io/klog"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
)

const DriverPostgres = "postgres"

// CreateDBClient opens the funds database. The driver comes from config,
// defaulting to sqlite; a DATABASE_URL secret forces postgres with a DSN
// because we are likely running on a hosted environment then.
func CreateDBClient() (*bun.DB, error) {
	if config.CurrentSecrets().DatabaseURL != "" {
		// this panics if the DSN is invalid
		pgconn := pgdriver.NewConnector(pgdriver.WithDSN(config.CurrentSecrets().DatabaseURL))
		db := sql.OpenDB(pgconn)

		return bun.NewDB(db, pgdialect.New()), db.Ping()
	}

	dbname := config.CurrentFundsConfig().SQL.FundsDatabase
	if dbname == "" {
		return nil, fmt.Errorf("funds database name is not configured")
	}

	if config.CurrentFundsConfig().SQL.Driver == DriverPostgres {
		return createPostgresClient(dbname)
	}

	return createSqliteClient(dbname)
}

func createSqliteClient(dbname string) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, dbname)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", dbname, err)
	}

	// the loader and the report jobs share one handle; sqlite misbehaves
	// with more than one connection on the same file
	db.SetMaxOpenConns(1)

	return bun.NewDB(db, sqlitedialect.New()), db.Ping()
}

func createPostgresClient(dbname string) (*bun.DB, error) {
	err := ensureDBExistsInPostgres(dbname)
	if err != nil {
		return nil, err
	}

	sqlHost := config.CurrentSqlSecrets().SqlHost
	// slightly silly logic to add port if missing
	if !strings.Contains(sqlHost, ":") {
		sqlHost += ":5432"
	}

	pgconn := pgdriver.NewConnector(
		pgdriver.WithAddr(sqlHost),
		pgdriver.WithInsecure(true),
		pgdriver.WithUser(config.CurrentSqlSecrets().SqlUsername),
		pgdriver.WithPassword(config.CurrentSqlSecrets().SqlPassword),
		pgdriver.WithDatabase(dbname),
	)

	db := sql.OpenDB(pgconn)
	err = db.Ping()

	return bun.NewDB(db, pgdialect.New()), err
}

func ensureDBExistsInPostgres(dbname string) error {
	pgconn := pgdriver.NewConnector(
		pgdriver.WithAddr(config.CurrentSqlSecrets().SqlHost),
		pgdriver.WithInsecure(true),
		pgdriver.WithUser(config.CurrentSqlSecrets().SqlUsername),
		pgdriver.WithPassword(config.CurrentSqlSecrets().SqlPassword),
		pgdriver.WithDatabase("postgres"),
	)

	db := sql.OpenDB(pgconn)
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT datname FROM pg_database where datname = '%s'", dbname))
	if err != nil {
		return fmt.Errorf("failed to get list of databases: %w", err)
	}
	defer rows.Close()

	// next meaning there is a row, all we care about is if there is a row
	if !rows.Next() {
		klog.Infof("Creating database %s in postgres\n", dbname)
		_, err := db.Exec("CREATE DATABASE " + dbname)
		if err != nil {
			return fmt.Errorf("failed to create database %s: %w", dbname, err)
		}
	}

	return nil
}

// ReadSQLFile returns the query text of a .sql file. A missing file is a
// configuration error and must abort the job.
func ReadSQLFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("SQL file not found: %s: %w", path, err)
	}

	return string(raw), nil
}

// ExecScriptFile runs every statement of the .sql file at path against db.
func ExecScriptFile(ctx context.Context, db *bun.DB, path string) error {
	script, err := ReadSQLFile(path)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, script)
	if err != nil {
		return fmt.Errorf("failed to execute script %s: %w", path, err)
	}

	return nil
}
