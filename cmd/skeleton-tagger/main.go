package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/config"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/logging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/report"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	envFile     string
	profilePath string
	dbPath      string
	logLevel    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "skeleton-tagger",
	Short: "Classify particles by their proximity to skeleton tips and junctions",
	Long: `skeleton-tagger classifies particle centroids against the end-points and
junction voxels of a skeleton. Run "serve" to expose it as an MCP server over
stdio, or "classify" to process files directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("profile") {
			run, err := config.LoadRunProfile(profilePath, cfg.Run)
			if err != nil {
				return err
			}
			cfg.ProfilePath, cfg.Run = profilePath, run
		}
		if cmd.Flags().Changed("db") {
			cfg.DatabasePath = dbPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		// stdout carries MCP traffic and command output
		logging.Configure(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "TOML run profile (overrides "+config.EnvProfile+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database for report history (overrides "+config.EnvDatabase+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: info or debug (overrides "+config.EnvLogLevel+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// openHistory opens the configured SQLite history. It returns nil when no
// database is configured.
func openHistory() (*report.SQLiteTable, error) {
	if cfg.DatabasePath == "" {
		return nil, nil
	}
	table, err := report.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", cfg.DatabasePath, err)
	}
	return table, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
