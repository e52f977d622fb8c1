package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/monitoring"
	"github.com/MCS-OSU/mcs-eval3/internal/observation"
	"github.com/MCS-OSU/mcs-eval3/internal/oracle"
	"github.com/MCS-OSU/mcs-eval3/internal/report"
	"github.com/MCS-OSU/mcs-eval3/internal/security"
	"github.com/MCS-OSU/mcs-eval3/internal/sink"
	"github.com/MCS-OSU/mcs-eval3/internal/storage/sqlite"
)

// DefaultMaxConcurrent is the number of scenes evaluated at once when the
// configuration does not say otherwise.
const DefaultMaxConcurrent = 4

// DiscoverScenes returns the .json and .jsonl scene files directly inside
// dir, sorted by name. Symlinks pointing outside dir are skipped.
func DiscoverScenes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scene dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".jsonl":
			p := filepath.Join(dir, e.Name())
			if err := security.ContainedIn(p, dir); err != nil {
				monitoring.Logf("skipping scene %s: %v", p, err)
				continue
			}
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Config wires the shared collaborators of a batch run. Every field except
// Options is optional.
type Config struct {
	// RunID names the batch in the store and the report. A fresh ULID is
	// used when empty.
	RunID         string
	Options       gravity.Options
	MaxConcurrent int
	// Oracle is shared by all scenes; wrap it with oracle.Serialize.
	Oracle    oracle.StabilityOracle
	Sinks     []gravity.PredictionSink
	Store     *sqlite.VerdictStore
	Artifacts *report.Artifacts
}

// SceneResult is the outcome of one scene.
type SceneResult struct {
	Path    string          `json:"path,omitempty"`
	Scene   string          `json:"scene"`
	Verdict gravity.Verdict `json:"verdict"`
	Err     error           `json:"-"`
}

// Summary aggregates a batch run.
type Summary struct {
	RunID        string        `json:"run_id"`
	Scenes       int           `json:"scenes"`
	Plausible    int           `json:"plausible"`
	Implausible  int           `json:"implausible"`
	Inconclusive int           `json:"inconclusive"`
	Divergent    int           `json:"divergent"`
	Failed       int           `json:"failed"`
	ReportPath   string        `json:"report_path,omitempty"`
	Results      []SceneResult `json:"results"`
}

// Runner evaluates scenes with a bounded worker pool.
type Runner struct {
	cfg Config
}

// New returns a Runner for cfg.
func New(cfg Config) *Runner {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Runner{cfg: cfg}
}

// Run loads and evaluates the scene files at paths. A scene that fails to
// load or run is recorded in its SceneResult and does not stop the batch;
// only cancellation of ctx does.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	jobs := make([]job, len(paths))
	for i, p := range paths {
		jobs[i] = job{path: p}
	}
	return r.run(ctx, jobs)
}

// RunScenes evaluates scenes already in memory.
func (r *Runner) RunScenes(ctx context.Context, scenes []*observation.Scene) (Summary, error) {
	jobs := make([]job, len(scenes))
	for i, sc := range scenes {
		jobs[i] = job{scene: sc}
	}
	return r.run(ctx, jobs)
}

type job struct {
	path  string
	scene *observation.Scene
}

func (r *Runner) run(ctx context.Context, jobs []job) (Summary, error) {
	runID := r.cfg.RunID
	if runID == "" {
		runID = ulid.Make().String()
	}
	monitoring.WithFields(monitoring.Fields{"run_id": runID, "scenes": len(jobs)}).Info("batch run started")

	sinks := append([]gravity.PredictionSink(nil), r.cfg.Sinks...)
	if r.cfg.Store != nil {
		sinks = append(sinks, r.cfg.Store.Sink(runID))
	}

	var agentOpts []gravity.AgentOption
	agentOpts = append(agentOpts, gravity.WithSink(sink.Multi(sinks)))
	if r.cfg.Oracle != nil {
		agentOpts = append(agentOpts, gravity.WithOracle(r.cfg.Oracle))
	}
	if r.cfg.Artifacts != nil {
		agentOpts = append(agentOpts, gravity.WithHeatmap(r.cfg.Artifacts))
	}

	results := make([]SceneResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrent)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = SceneResult{Path: j.path, Err: err}
				return err
			}
			results[i] = r.runOne(gctx, j, agentOpts)
			return nil
		})
	}
	waitErr := g.Wait()

	sum := summarise(runID, results)
	if r.cfg.Artifacts != nil && len(r.cfg.Artifacts.Episodes()) > 0 {
		path, err := r.cfg.Artifacts.WriteReport(runID)
		if err != nil {
			monitoring.Logf("run %s: %v", runID, err)
		}
		sum.ReportPath = path
	}

	monitoring.WithFields(monitoring.Fields{
		"run_id":       runID,
		"implausible":  sum.Implausible,
		"plausible":    sum.Plausible,
		"inconclusive": sum.Inconclusive,
		"failed":       sum.Failed,
	}).Info("batch run finished")

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return sum, waitErr
	}
	return sum, nil
}

func (r *Runner) runOne(ctx context.Context, j job, agentOpts []gravity.AgentOption) SceneResult {
	res := SceneResult{Path: j.path}
	sc := j.scene
	if sc == nil {
		loaded, err := observation.LoadScene(j.path)
		if err != nil {
			res.Err = err
			monitoring.Logf("scene %s: %v", j.path, err)
			return res
		}
		sc = loaded
	}
	res.Scene = sc.Name

	agent := gravity.NewAgent(r.cfg.Options, agentOpts...)
	v, err := agent.RunScene(ctx, gravity.SceneMeta{Name: sc.Name, Level: sc.Level}, sc.Source())
	res.Verdict = v
	if err != nil {
		res.Err = err
		monitoring.Logf("scene %s: %v", sc.Name, err)
	}
	return res
}

func summarise(runID string, results []SceneResult) Summary {
	sum := Summary{RunID: runID, Scenes: len(results), Results: results}
	for _, res := range results {
		switch {
		case res.Err != nil:
			sum.Failed++
		case res.Verdict.Inconclusive:
			sum.Inconclusive++
		case res.Verdict.Implausible:
			sum.Implausible++
		default:
			sum.Plausible++
		}
		if res.Err == nil && res.Verdict.CrossCheck.Divergent() {
			sum.Divergent++
		}
	}
	return sum
}
