package loader

import (
	"strings"

	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/fundname"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/tabular"
)

// LabelTable applies the labelling rules to one ingested table:
// column-name normalization, the SEDOL column rule, the filename-derived
// Month and Fund_Name columns broadcast to every row, and exact-duplicate
// row collapse. The input table is modified in place and returned.
func LabelTable(table *tabular.Table, filename string) *tabular.Table {
	normalizeColumns(table)
	ensureSedolColumn(table)

	resolved := fundname.Resolve(filename)

	// Month stays NULL when the filename had no recognizable date
	var month interface{}
	if resolved.Month != "" {
		month = resolved.Month
	}

	table.AddColumn("Month", month)
	table.AddColumn("Fund_Name", resolved.FundName)

	dropDuplicateRows(table)

	return table
}

// normalizeColumns strips surrounding whitespace, replaces interior
// spaces with underscores and rewrites the literal P/L to P_L.
func normalizeColumns(table *tabular.Table) {
	for i, column := range table.Columns {
		c := strings.TrimSpace(column)
		c = strings.ReplaceAll(c, " ", "_")
		c = strings.ReplaceAll(c, "P/L", "P_L")
		table.Columns[i] = c
	}
}

// ensureSedolColumn adds a NULL SEDOL column when the file carries no
// SEDOL of its own. Files with only an ISIN keep the ISIN as-is and
// still get the blank SEDOL; files with a real SEDOL (the bonds case)
// are left alone.
func ensureSedolColumn(table *tabular.Table) {
	if table.ColumnIndex("SEDOL") >= 0 {
		return
	}

	table.AddColumn("SEDOL", nil)
}

// dropDuplicateRows collapses rows that are equal on every column,
// keeping the first occurrence. This only dedups within one file.
func dropDuplicateRows(table *tabular.Table) {
	seen := make(map[string]bool, len(table.Rows))
	kept := table.Rows[:0]

	for _, row := range table.Rows {
		key := rowKey(row)
		if seen[key] {
			continue
		}

		seen[key] = true
		kept = append(kept, row)
	}

	table.Rows = kept
}

func rowKey(row []interface{}) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = tabular.FormatValue(v)
	}

	return strings.Join(parts, "\x1f")
}
