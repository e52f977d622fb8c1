package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/security"
)

// Artifacts renders a PNG per episode into a directory and keeps the
// episodes for the run report. It implements gravity.HeatmapRenderer and is
// safe for concurrent use by several agents.
type Artifacts struct {
	dir     string
	plotter *TrajectoryPlotter

	mu       sync.Mutex
	episodes []Episode
}

// NewArtifacts writes artifacts under dir, creating it if needed.
func NewArtifacts(dir string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Artifacts{dir: dir, plotter: NewTrajectoryPlotter()}, nil
}

// RenderEpisode draws the episode, saves it as <scene>.png and returns the
// image bytes.
func (a *Artifacts) RenderEpisode(scene string, traj []gravity.TrajectorySample, support geometry.Cuboid, v gravity.Verdict) ([]byte, error) {
	img, err := a.plotter.PNG(scene, traj, support, v)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(a.dir, SafeName(scene)+".png")
	if err := security.ContainedIn(path, a.dir); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	a.mu.Lock()
	a.episodes = append(a.episodes, Episode{Scene: scene, Trajectory: traj, Support: support, Verdict: v})
	a.mu.Unlock()
	return img, nil
}

// Episodes returns the rendered episodes sorted by scene name.
func (a *Artifacts) Episodes() []Episode {
	a.mu.Lock()
	out := append([]Episode(nil), a.episodes...)
	a.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Scene < out[j].Scene })
	return out
}

// WriteReport writes report-<runID>.html and returns its path.
func (a *Artifacts) WriteReport(runID string) (string, error) {
	path := filepath.Join(a.dir, "report-"+SafeName(runID)+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := WriteRunReport(f, runID, a.Episodes()); err != nil {
		return "", err
	}
	return path, f.Close()
}

// SafeName maps a scene name onto a file name.
func SafeName(name string) string {
	return security.SanitizeFilename(name, "scene")
}
