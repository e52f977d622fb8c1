package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/MCS-OSU/mcs-eval3/internal/config"
	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
	"github.com/MCS-OSU/mcs-eval3/internal/oracle"
	"github.com/MCS-OSU/mcs-eval3/internal/report"
	"github.com/MCS-OSU/mcs-eval3/internal/runner"
	"github.com/MCS-OSU/mcs-eval3/internal/sink"
	"github.com/MCS-OSU/mcs-eval3/internal/storage/sqlite"
)

var publishSteps bool

var runCmd = &cobra.Command{
	Use:   "run <scene>",
	Short: "Evaluate one recorded scene",
	Long: `Replays a recorded scene through the detector and prints the verdict as
JSON. Exit status is zero for both plausible and implausible scenes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := runPaths(cmd.Context(), params, args)
		if err != nil {
			return err
		}
		res := sum.Results[0]
		if res.Err != nil {
			return res.Err
		}
		return writeJSON(cmd.OutOrStdout(), res.Verdict)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Evaluate every scene file in a directory",
	Long: `Evaluates the .json and .jsonl scene files in dir concurrently and prints
a run summary as JSON. A scene that fails to load is counted as failed and
does not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := runner.DiscoverScenes(args[0])
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no scene files in %s", args[0])
		}
		sum, err := runPaths(cmd.Context(), params, paths)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), sum)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, batchCmd} {
		c.Flags().BoolVar(&publishSteps, "publish-steps", false, "Also publish per-step predictions to Redis")
	}
}

// runPaths wires the optional collaborators named in p and evaluates paths.
func runPaths(ctx context.Context, p config.Params, paths []string) (runner.Summary, error) {
	runID := ulid.Make().String()
	cfg := runner.Config{
		RunID:         runID,
		Options:       gravity.OptionsFromParams(p),
		MaxConcurrent: p.MaxConcurrentScenes,
		Sinks:         []gravity.PredictionSink{sink.Log{}},
	}
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				monitoring.Logf("close: %v", err)
			}
		}
	}()

	if p.OracleAddress != "" {
		client, err := oracle.Dial(p.OracleAddress, p.OracleTimeout)
		if err != nil {
			return runner.Summary{}, err
		}
		closers = append(closers, client)
		cfg.Oracle = oracle.Serialize(client, p.OracleMaxConcurrent, p.OracleRatePerSec)
	}

	if p.RedisAddress != "" {
		rdb, err := sink.DialRedis(ctx, p.RedisAddress)
		if err != nil {
			return runner.Summary{}, err
		}
		closers = append(closers, rdb)
		opts := []sink.RedisOption{sink.WithRunID(runID)}
		if publishSteps {
			opts = append(opts, sink.WithSteps())
		}
		cfg.Sinks = append(cfg.Sinks, sink.NewRedis(rdb, p.RedisStream, opts...))
	}

	if p.DBPath != "" {
		db, err := sqlite.Open(p.DBPath)
		if err != nil {
			return runner.Summary{}, err
		}
		closers = append(closers, db)
		if err := db.MigrateUp(); err != nil {
			return runner.Summary{}, err
		}
		cfg.Store = sqlite.NewVerdictStore(db.DB, nil)
	}

	if p.PlotDir != "" {
		art, err := report.NewArtifacts(p.PlotDir)
		if err != nil {
			return runner.Summary{}, err
		}
		cfg.Artifacts = art
	}

	sum, err := runner.New(cfg).Run(ctx, paths)
	if err != nil && !errors.Is(err, context.Canceled) {
		return sum, err
	}
	if sum.ReportPath != "" {
		monitoring.Logf("run report written to %s", sum.ReportPath)
	}
	return sum, err
}

func writeJSON(w io.Writer, v any) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
