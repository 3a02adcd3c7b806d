// Package performance derives the month-over-month rate of return per
// fund and selects the best performing fund for every month.
package performance

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/dbutils"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/influxutils"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/tabular"
)

const OutputFileName = "best_performing_funds.csv"

// SourceRow is one queried row of the funds table, month already
// normalized to the first of the calendar month.
type SourceRow struct {
	FundName    string
	Month       time.Time
	MarketValue float64
	RealisedPL  float64
}

// Aggregate is one fund's summed market value and realized P/L for one
// calendar month, with the previous month's closing value and the rate
// of return derived from it. FundMVStart is nil for a fund's first
// observed month; RateOfReturn is nil whenever the start value is nil
// or zero.
type Aggregate struct {
	FundName     string
	Month        time.Time
	FundMVEnd    float64
	RealizedPL   float64
	FundMVStart  *float64
	RateOfReturn *float64
}

type PerformanceRunner struct {
	db        *bun.DB
	outputDir string
	log       *logrus.Logger
}

func NewPerformanceRunner(db *bun.DB, log *logrus.Logger, outputDir string) *PerformanceRunner {
	return &PerformanceRunner{db: db, outputDir: outputDir, log: log}
}

// Run queries the aggregated fund rows using the configured SQL file and
// writes the best-performing-fund-per-month report. An empty query
// result is a soft failure: logged, no report written, no error.
func (r *PerformanceRunner) Run() error {
	ctx := context.Background()

	sqlPath := filepath.Join(config.CurrentFundsConfig().SQLDir, config.CurrentFundsConfig().PerformanceSQL)

	query, err := dbutils.ReadSQLFile(sqlPath)
	if err != nil {
		return err
	}

	rows, err := querySourceRows(ctx, r.db, query)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		r.log.Error("No data found in funds table, skipping performance report")
		return nil
	}

	best := BestPerformingFunds(rows)

	outputFile := filepath.Join(r.outputDir, OutputFileName)
	if err := writeReport(best, outputFile); err != nil {
		return err
	}

	r.log.Infof("Best performing funds written to %s", outputFile)

	if config.CurrentFundsConfig().Influx.Enabled {
		if err := r.publishToInflux(AggregateByFundMonth(rows)); err != nil {
			// dashboards are best effort, the CSV report is the artifact
			r.log.Warnf("Failed to publish aggregates to influx: %v", err)
		}
	}

	return nil
}

func (r *PerformanceRunner) Close() error {
	return r.db.Close()
}

func (r *PerformanceRunner) publishToInflux(aggregates []Aggregate) error {
	influxClient, err := influxutils.CreateInfluxClient(config.CurrentInfluxSecrets())
	if err != nil {
		return err
	}
	defer influxClient.Close()

	influxConfig := config.CurrentFundsConfig().Influx

	err = influxutils.CreateDatabase(influxClient, influxConfig.Database)
	if err != nil {
		return err
	}

	points := make([]influxutils.FundPoint, 0, len(aggregates))

	for _, agg := range aggregates {
		point := influxutils.FundPoint{
			FundName:   agg.FundName,
			Month:      agg.Month,
			FundMVEnd:  agg.FundMVEnd,
			RealizedPL: agg.RealizedPL,
		}
		if agg.RateOfReturn != nil {
			point.RateOfReturn = agg.RateOfReturn
		}

		points = append(points, point)
	}

	return influxutils.WriteFundPoints(influxClient, influxConfig.Database, influxConfig.Measurement, points)
}

// querySourceRows materializes the query result and converts it to
// typed source rows. The four expected columns are required; anything
// else in the result is carried along by the query but ignored here.
func querySourceRows(ctx context.Context, db *bun.DB, query string) ([]SourceRow, error) {
	sqlRows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("performance query failed: %w", err)
	}
	defer sqlRows.Close()

	table, err := tabular.FromRows(sqlRows)
	if err != nil {
		return nil, err
	}

	return sourceRowsFromTable(table)
}

func sourceRowsFromTable(table *tabular.Table) ([]SourceRow, error) {
	indexes := make(map[string]int, 4)

	for _, column := range []string{"FUND_NAME", "Month", "MARKET_VALUE", "REALISED_P_L"} {
		i := table.ColumnIndex(column)
		if i < 0 {
			return nil, fmt.Errorf("performance query result is missing required column %s", column)
		}

		indexes[column] = i
	}

	rows := make([]SourceRow, 0, table.NumRows())

	for _, row := range table.Rows {
		month, err := parseMonth(row[indexes["Month"]])
		if err != nil {
			return nil, err
		}

		marketValue, err := toFloat(row[indexes["MARKET_VALUE"]])
		if err != nil {
			return nil, fmt.Errorf("bad MARKET_VALUE: %w", err)
		}

		realisedPL, err := toFloat(row[indexes["REALISED_P_L"]])
		if err != nil {
			return nil, fmt.Errorf("bad REALISED_P_L: %w", err)
		}

		rows = append(rows, SourceRow{
			FundName:    tabular.FormatValue(row[indexes["FUND_NAME"]]),
			Month:       month,
			MarketValue: marketValue,
			RealisedPL:  realisedPL,
		})
	}

	return rows, nil
}

// BestPerformingFunds aggregates the rows per (fund, month) and selects
// one winner per month: the fund with the maximal rate of return among
// funds with a defined one. Months where no fund has a defined rate of
// return (in particular the very first month in the data) contribute no
// record. Ties go to the first maximal row in (fund, month) sort order.
func BestPerformingFunds(rows []SourceRow) []Aggregate {
	aggregates := AggregateByFundMonth(rows)

	var best []Aggregate
	byMonth := make(map[time.Time]int)

	for _, agg := range aggregates {
		if agg.RateOfReturn == nil {
			continue
		}

		i, ok := byMonth[agg.Month]
		if !ok {
			byMonth[agg.Month] = len(best)
			best = append(best, agg)
			continue
		}

		// strictly greater keeps the first maximal row on ties
		if *agg.RateOfReturn > *best[i].RateOfReturn {
			best[i] = agg
		}
	}

	sort.Slice(best, func(i, j int) bool {
		return best[i].Month.Before(best[j].Month)
	})

	return best
}

// AggregateByFundMonth sums market value and realized P/L per
// (fund, month), sorts by (fund, month) ascending and then resolves each
// row's start value from the previous row of the same fund. The lookback
// depends on that sort order, so the sort always happens first.
func AggregateByFundMonth(rows []SourceRow) []Aggregate {
	type key struct {
		fund  string
		month time.Time
	}

	sums := make(map[key]*Aggregate)

	for _, row := range rows {
		k := key{fund: row.FundName, month: row.Month}

		agg, ok := sums[k]
		if !ok {
			agg = &Aggregate{FundName: row.FundName, Month: row.Month}
			sums[k] = agg
		}

		agg.FundMVEnd += row.MarketValue
		agg.RealizedPL += row.RealisedPL
	}

	aggregates := make([]Aggregate, 0, len(sums))
	for _, agg := range sums {
		aggregates = append(aggregates, *agg)
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].FundName != aggregates[j].FundName {
			return aggregates[i].FundName < aggregates[j].FundName
		}

		return aggregates[i].Month.Before(aggregates[j].Month)
	})

	lastMVEnd := make(map[string]float64)

	for i := range aggregates {
		agg := &aggregates[i]

		if prev, ok := lastMVEnd[agg.FundName]; ok {
			start := prev
			agg.FundMVStart = &start
			agg.RateOfReturn = rateOfReturn(agg.FundMVEnd, start, agg.RealizedPL)
		}

		lastMVEnd[agg.FundName] = agg.FundMVEnd
	}

	return aggregates
}

// rateOfReturn is (end - start + realized P/L) / start. A zero start
// value would produce a degenerate ratio, so it is treated like a
// missing one and excluded from the ranking.
func rateOfReturn(end, start, realizedPL float64) *float64 {
	if start == 0 {
		return nil
	}

	ror := (end - start + realizedPL) / start

	return &ror
}

func writeReport(best []Aggregate, outputFile string) error {
	table := &tabular.Table{
		Columns: []string{"FUND_NAME", "Month", "Fund_MV_end", "Realized_P_L", "Fund_MV_start", "Rate_of_Return"},
	}

	for _, agg := range best {
		var start, ror interface{}
		if agg.FundMVStart != nil {
			start = *agg.FundMVStart
		}
		if agg.RateOfReturn != nil {
			ror = *agg.RateOfReturn
		}

		table.Rows = append(table.Rows, []interface{}{
			agg.FundName,
			agg.Month,
			agg.FundMVEnd,
			agg.RealizedPL,
			start,
			ror,
		})
	}

	return table.WriteCSVFile(outputFile)
}

// monthLayouts accepts the date shapes seen in the funds table; parsing
// is tolerant on format but an unparseable month is fatal.
var monthLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
}

func parseMonth(v interface{}) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}

	raw := tabular.FormatValue(v)

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse month: %q", raw)
}

func toFloat(v interface{}) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case float32:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case int:
		return float64(value), nil
	case []byte:
		return parseFloatString(string(value))
	case string:
		return parseFloatString(value)
	case nil:
		return 0, fmt.Errorf("unexpected NULL numeric value")
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

func parseFloatString(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %q as a number", s)
	}

	return f, nil
}
