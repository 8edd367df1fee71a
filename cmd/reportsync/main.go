// Command reportsync pulls every survey from the backend and rebuilds the
// report sheets from them.
package main

import (
	"database/sql"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mbolis/barrio-survey/backend"
	"github.com/mbolis/barrio-survey/database"
	"github.com/mbolis/barrio-survey/log"
	"github.com/mbolis/barrio-survey/sheets"
	"github.com/mbolis/barrio-survey/syncjob"
)

var (
	// Global flags
	configPath string
	apiURL     string
	interval   time.Duration
	dbPath     string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "reportsync",
	Short: "Rebuild the survey report sheets from the backend",
	Long: `reportsync downloads every stored survey from the backend API and
rewrites the raw data, neighborhood, ranking, evolution, KPI and status
sheets in the local SQLite workbook.

Settings are read from the optional YAML file given with --config, then
from the environment, then from the flags below.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single sync cycle",
	Args:  cobra.NoArgs,
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Sync now and then once per interval until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Probe the backend endpoints without writing any sheet",
	Long: `Calls every configured endpoint and prints, as JSON, the status code,
the first characters of the body and, for the full listing, how many
surveys came back. The workbook is not opened.`,
	Args: cobra.NoArgs,
	RunE: runSmoke,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "survey backend base URL")
	rootCmd.PersistentFlags().DurationVar(&interval, "interval", 0, "time between scheduled runs")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "path to the SQLite3 workbook")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at DEBUG level")

	rootCmd.AddCommand(runCmd, scheduleCmd, smokeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the command line flags over LoadConfig.
func loadConfig() (syncjob.Config, error) {
	cfg, err := syncjob.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if apiURL != "" {
		cfg.BaseURL = apiURL
	}
	if interval > 0 {
		cfg.Interval = interval
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openJob builds a job writing to the workbook at cfg.DBPath. The caller
// closes the returned DB.
func openJob(cfg syncjob.Config) (*syncjob.Job, *sql.DB, error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open workbook")
	}
	job := syncjob.NewJob(cfg, backend.New(cfg.BaseURL, nil), sheets.NewSQLite(db), log.Logger)
	return job, db, nil
}
