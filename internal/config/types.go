package config

type Config struct {
	Funds FundsConfig
}

type Secrets struct {
	SQL    SqlSecrets
	Influx InfluxSecrets

	// Alternative to the SQL secrets struct, used when running against a
	// hosted postgres (heroku style env variable)
	DatabaseURL string `env:"DATABASE_URL"`
}

type FundsConfig struct {
	// cron expression for the scheduled runs
	UpdateFrequency string

	SQL struct {
		// sqlite (default) or postgres
		Driver        string
		FundsDatabase string
		FundsTable    string
		BatchSize     int
	}

	// directory holding the report queries and DDL scripts
	SQLDir string

	// script and query file names resolved relative to SQLDir
	MasterReferenceDDL string
	FundsTableDDL      string
	PerformanceSQL     string
	ReconciliationSQL  string

	CSVDir    string
	OutputDir string
	LogsDir   string

	Influx InfluxConfig
}

type InfluxConfig struct {
	Enabled     bool
	Database    string
	Measurement string
}

type SqlSecrets struct {
	SqlHost     string `env:"SQL_HOST"`
	SqlUsername string `env:"SQL_USERNAME"`
	SqlPassword string `env:"SQL_PASSWORD"`
}

type InfluxSecrets struct {
	InfluxEndpoint string `json:"influxEndpoint" env:"INFLUX_ENDPOINT"`
	InfluxUsername string `json:"influxUsername" env:"INFLUX_USERNAME"`
	InfluxPassword string `json:"influxPassword" env:"INFLUX_PASSWORD"`
}
