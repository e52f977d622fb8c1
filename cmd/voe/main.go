package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MCS-OSU/mcs-eval3/internal/config"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
	"github.com/MCS-OSU/mcs-eval3/internal/version"
)

var (
	configPath string
	logLevel   string
	logFile    string
	dbPath     string
	plotDir    string
	redisAddr  string
	oracleAddr string
	legacy     bool

	params config.Params
)

var rootCmd = &cobra.Command{
	Use:   "voe",
	Short: "Gravity-scene violation-of-expectation detector",
	Long: `voe watches a target object dropped near a support and decides whether
what happened afterwards is physically plausible.

Scenes are recorded step observations (.json or .jsonl). Verdicts can be
stored in SQLite, published to a Redis stream and rendered as PNG plots with
an HTML run report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := monitoring.Configure(logLevel, logFile); err != nil {
			return err
		}
		p, err := loadParams(cmd)
		if err != nil {
			return err
		}
		params = p
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Tuning config file (.json or .yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite verdict database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&plotDir, "plot-dir", "", "Directory for trajectory plots and run reports (overrides config)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address for publishing predictions (overrides config)")
	rootCmd.PersistentFlags().StringVar(&oracleAddr, "oracle", "", "Stability oracle gRPC address (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&legacy, "legacy-support-range", false, "Predict stability with the legacy mixed-axis range check")

	rootCmd.AddCommand(runCmd, batchCmd, migrateCmd, versionCmd)
}

// loadParams reads the config file, applies VOE_* environment overrides and
// then explicit flags.
func loadParams(cmd *cobra.Command) (config.Params, error) {
	cfg := config.EmptyTuningConfig()
	if configPath != "" {
		loaded, err := config.LoadTuningConfig(configPath)
		if err != nil {
			return config.Params{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Params{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = &dbPath
	}
	if flags.Changed("plot-dir") {
		cfg.PlotDir = &plotDir
	}
	if flags.Changed("redis") {
		cfg.RedisAddress = &redisAddr
	}
	if flags.Changed("oracle") {
		cfg.OracleAddress = &oracleAddr
	}
	if flags.Changed("legacy-support-range") {
		cfg.LegacySupportRange = &legacy
	}
	return cfg.Resolve()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		monitoring.Logf("voe: %v", err)
		os.Exit(1)
	}
}
