// Package tabular holds the row/column structure shared by the CSV
// loader and the report engines: CSV in, SQL rowsets in, CSV out.
package tabular

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Table is an ordered set of columns and rows. Row values keep the
// driver types they arrived with; CSV-sourced tables hold strings.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}

	return -1
}

// AddColumn appends a column filled with value on every existing row.
func (t *Table) AddColumn(name string, value interface{}) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// ReadCSV parses one CSV document with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	table := &Table{Columns: header}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		row := make([]interface{}, len(record))
		for i, v := range record {
			row[i] = v
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ReadCSVFile reads the CSV file at path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// FromRows materializes a query result, preserving column order.
func FromRows(rows *sql.Rows) (*Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	table := &Table{Columns: columns}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		table.Rows = append(table.Rows, values)
	}

	return table, rows.Err()
}

// WriteCSV writes the table with a header row and no index column.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return err
	}

	record := make([]string, len(t.Columns))

	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = FormatValue(v)
		}

		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

// WriteCSVFile writes the table to path, truncating any existing file.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return t.WriteCSV(f)
}

// FormatValue renders one cell value for CSV output. NULL becomes the
// empty string; floats use the shortest exact representation.
func FormatValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	// plain decimal notation, never scientific: market values in the
	// millions must render as 2500000, not 2.5e+06
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", value)
	}
}
