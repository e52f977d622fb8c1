package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/testutil"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleEpisode(t *testing.T) Episode {
	t.Helper()
	ep := gravity.NewEpisode(gravity.DefaultOptions())
	recs := testutil.AboveSupport().Records()
	for i := range recs {
		require.NoError(t, ep.Observe(&recs[i]))
	}
	v, err := ep.Decide()
	require.NoError(t, err)
	support, ok := ep.Support()
	require.True(t, ok)
	return Episode{Scene: "scene/1", Trajectory: ep.Trajectory(), Support: support, Verdict: v}
}

func TestTrajectoryPlotterPNG(t *testing.T) {
	t.Parallel()

	e := sampleEpisode(t)
	img, err := NewTrajectoryPlotter().PNG(e.Scene, e.Trajectory, e.Support, e.Verdict)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestTrajectoryPlotterEmptyEpisode(t *testing.T) {
	t.Parallel()

	img, err := NewTrajectoryPlotter().PNG("empty", nil, geometry.Cuboid{}, gravity.Verdict{DropFrame: -1})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestWriteRunReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteRunReport(&buf, "run-1", []Episode{sampleEpisode(t)}))
	html := buf.String()
	assert.Contains(t, html, "VoE run run-1")
	assert.Contains(t, html, "scene/1")
}

func TestArtifacts(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "plots")
	a, err := NewArtifacts(dir)
	require.NoError(t, err)

	e := sampleEpisode(t)
	img, err := a.RenderEpisode(e.Scene, e.Trajectory, e.Support, e.Verdict)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(filepath.Join(dir, "scene_1.png"))
	require.NoError(t, err)
	assert.Equal(t, img, onDisk)
	require.Len(t, a.Episodes(), 1)

	path, err := a.WriteReport("01HRUN")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "report-01HRUN.html"))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSafeName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a_b-c.d", SafeName("a/b-c.d"))
	assert.Equal(t, "scene", SafeName(""))
	assert.Equal(t, "etc_passwd", SafeName("../../etc/passwd"))
}
