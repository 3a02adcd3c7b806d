package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/config"
	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/loader"
	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/performance"
	"github.com/MohitSonje1608/FundPerfomanceGIC/internal/reconciliation"
	"github.com/MohitSonje1608/FundPerfomanceGIC/pkg/dbutils"
)

const logLevelEnv = "FUNDOPS_LOG_LEVEL"

type Runner interface {
	Run() error
	Close() error
}

var runner Runner
var log *logrus.Logger

func main() {
	singleRun := flag.Bool("single-run", false, "run the job once (disable cron)")
	configFile := flag.String("config", "./config.yml", "configuration file")
	secretsFile := flag.String("secrets", "./secrets.json", "secrets file")
	help := flag.Bool("help", false, "show command help")

	flag.Parse()

	if *help {
		fmt.Println("fund performance pipeline")
		fmt.Println("fundops [options] task [dir]")
		fmt.Println("tasks: load [csv-dir], performance [output-dir], reconcile [output-dir]")
		flag.PrintDefaults()
		return
	}

	err := config.ReadConfig(*configFile, *secretsFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("No task passed in")
		os.Exit(1)
	}

	task := args[0]

	dir := ""
	if len(args) > 1 {
		dir = args[1]
	}

	db, err := dbutils.CreateDBClient()
	if err != nil {
		fmt.Printf("Error connecting to funds database: %s\n", err)
		os.Exit(1)
	}

	switch task {
	case "load":
		log = newJobLogger("ingest.log")
		if dir == "" {
			dir = config.CurrentFundsConfig().CSVDir
		}
		runner = loader.NewLoadRunner(db, log, dir)
	case "performance":
		log = newJobLogger("fund_performance.log")
		runner = performance.NewPerformanceRunner(db, log, outputDir(dir))
	case "reconcile":
		log = newJobLogger("reconciliation.log")
		runner = reconciliation.NewReconcileRunner(db, log, outputDir(dir))
	default:
		fmt.Printf("Unknown task %s\n", task)
		os.Exit(1)
	}

	defer runner.Close()

	if err := run(); err != nil {
		// os.Exit skips the deferred close
		runner.Close()
		os.Exit(1)
	}

	if *singleRun {
		return
	}

	c := cron.New()
	c.AddFunc(config.CurrentFundsConfig().UpdateFrequency, func() { run() })

	c.Start()

	select {}
}

func run() error {
	log.Infof("Starting run at %s", time.Now().Format(time.RFC850))

	err := runner.Run()
	if err != nil {
		log.Errorf("Run failed: %v", err)
	}

	return err
}

func outputDir(dir string) string {
	if dir == "" {
		dir = config.CurrentFundsConfig().OutputDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Printf("Error creating output dir %s: %s\n", dir, err)
		os.Exit(1)
	}

	return dir
}

// newJobLogger logs to the per-job append file and the console, level
// taken from the environment.
func newJobLogger(logFileName string) *logrus.Logger {
	jobLog := logrus.New()

	level, err := logrus.ParseLevel(os.Getenv(logLevelEnv))
	if err != nil {
		level = logrus.InfoLevel
	}

	jobLog.SetLevel(level)

	logsDir := config.CurrentFundsConfig().LogsDir
	if logsDir == "" {
		logsDir = "./logs"
	}

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		fmt.Printf("Warning: could not create logs dir %s: %s\n", logsDir, err)
		return jobLog
	}

	logFile, err := os.OpenFile(filepath.Join(logsDir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Printf("Warning: could not open log file %s: %s\n", logFileName, err)
		return jobLog
	}

	jobLog.SetOutput(io.MultiWriter(os.Stdout, logFile))

	return jobLog
}
