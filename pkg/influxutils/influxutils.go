// Package influxutils pushes fund-month aggregates to influx for
// dashboarding. Publishing is optional and best effort.
package influxutils

import (
	"fmt"
	"strings"
	"time"

	influx "github.com/influxdata/influxdb/client/v2"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
)

// FundPoint is one fund-month aggregate ready to be written as a point.
type FundPoint struct {
	FundName     string
	Month        time.Time
	FundMVEnd    float64
	RealizedPL   float64
	RateOfReturn *float64
}

func CreateInfluxClient(secrets *config.InfluxSecrets) (influx.Client, error) {
	return influx.NewHTTPClient(influx.HTTPConfig{
		Addr:     secrets.InfluxEndpoint,
		Username: secrets.InfluxUsername,
		Password: secrets.InfluxPassword,
	})
}

func CreateDatabase(influxClient influx.Client, name string) error {
	name = strings.Split(name, " ")[0]

	createCommand := fmt.Sprintf("CREATE DATABASE %s", name)

	q := influx.NewQuery(createCommand, "", "")

	response, err := influxClient.Query(q)
	if err != nil {
		return err
	}

	return response.Error()
}

// WriteFundPoints writes one point per aggregate, timestamped at the
// first of the month.
func WriteFundPoints(influxClient influx.Client, database, measurement string, points []FundPoint) error {
	bp, err := influx.NewBatchPoints(influx.BatchPointsConfig{
		Database:  database,
		Precision: "h",
	})
	if err != nil {
		return fmt.Errorf("error creating batch points: %w", err)
	}

	for _, point := range points {
		tags := map[string]string{
			"fund_name": point.FundName,
		}

		fields := map[string]interface{}{
			"fund_mv_end":  point.FundMVEnd,
			"realized_p_l": point.RealizedPL,
		}

		if point.RateOfReturn != nil {
			fields["rate_of_return"] = *point.RateOfReturn
		}

		pt, err := influx.NewPoint(measurement, tags, fields, point.Month)
		if err != nil {
			return fmt.Errorf("error adding new point: %w", err)
		}

		bp.AddPoint(pt)
	}

	return influxClient.Write(bp)
}
