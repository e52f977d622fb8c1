package gravity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/observation"
	"github.com/MCS-OSU/mcs-eval3/internal/oracle"
	"github.com/MCS-OSU/mcs-eval3/internal/testutil"
	"github.com/MCS-OSU/mcs-eval3/internal/timeutil"
)

type recordingSink struct {
	mu       sync.Mutex
	steps    []StepPrediction
	verdicts []Verdict
	stepErr  error
}

func (s *recordingSink) MakeStepPrediction(_ context.Context, p StepPrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, p)
	return s.stepErr
}

func (s *recordingSink) EndScene(_ context.Context, v Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts = append(s.verdicts, v)
	return nil
}

type fakeOracle struct {
	calls []oracle.Request
	resp  oracle.Response
	err   error
}

func (f *fakeOracle) Replay(_ context.Context, req oracle.Request) (oracle.Response, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

// finalAt returns an oracle response whose target ends at p (oracle frame).
func finalAt(p [3]float64) oracle.Response {
	return oracle.Response{Objects: map[string]oracle.SimulatedObject{
		testutil.TargetID: {Pos: [][3]float64{{5, 5, 5}, p}},
	}}
}

type errSource struct{}

func (errSource) Next(context.Context) (*observation.StepRecord, bool, error) {
	return nil, false, errors.New("driver crashed")
}

type stubRenderer struct{ called int }

func (r *stubRenderer) RenderEpisode(string, []TrajectorySample, geometry.Cuboid, Verdict) ([]byte, error) {
	r.called++
	return []byte("png"), nil
}

func runScene(t *testing.T, a *Agent, recs []observation.StepRecord) Verdict {
	t.Helper()
	v, err := a.RunScene(context.Background(), SceneMeta{Name: "scene-1"}, observation.NewSliceSource(recs))
	require.NoError(t, err)
	return v
}

func TestAgent_RunSceneEmitsPredictions(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	a := NewAgent(DefaultOptions(), WithSink(sink))
	recs := testutil.AboveSupport().Records()

	v := runScene(t, a, recs)

	require.Len(t, sink.steps, len(recs))
	for i, p := range sink.steps {
		assert.Equal(t, i, p.Step)
		assert.Equal(t, ChoicePlausible, p.Choice)
		assert.Equal(t, 1.0, p.Confidence)
		assert.NotNil(t, p.ViolationsXY)
		assert.Empty(t, p.ViolationsXY)
		assert.Nil(t, p.HeatmapImg)
		assert.Equal(t, "scene-1", p.Scene)
	}
	require.Len(t, sink.verdicts, 1)
	assert.Equal(t, v.Choice(), sink.verdicts[0].Choice())
	assert.Equal(t, "scene-1", v.Scene)
	assert.False(t, v.Implausible)
	assert.Equal(t, 1.0, v.Confidence)
	assert.Equal(t, oracle.StatusSkipped, v.CrossCheck.Status)
}

func TestAgent_ImplausibleScene(t *testing.T) {
	t.Parallel()

	beside := geometry.Planar{X: 15, Z: 5}
	scene := testutil.DropScene{Drop: beside, Rest: beside, RestY: 1, Hold: 3, Settle: 5}
	sink := &recordingSink{}
	v := runScene(t, NewAgent(DefaultOptions(), WithSink(sink)), scene.Records())

	assert.True(t, v.Implausible)
	require.Len(t, sink.verdicts, 1)
	assert.Equal(t, ChoiceImplausible, sink.verdicts[0].Choice())
}

func TestAgent_CrossCheckDivergent(t *testing.T) {
	t.Parallel()

	// Observed final position (5, 1.5, 5) is (5, 5, 1.5) in the oracle frame.
	orc := &fakeOracle{resp: finalAt([3]float64{5.3, 5, 1.5})}
	v := runScene(t, NewAgent(DefaultOptions(), WithOracle(orc)), testutil.AboveSupport().Records())

	require.Len(t, orc.calls, 1)
	req := orc.calls[0]
	assert.Len(t, req.Records, 4)
	assert.Equal(t, testutil.TargetID, req.TargetID)
	assert.Equal(t, testutil.SupportID, req.SupportID)
	assert.Equal(t, DefaultLevel, req.Level)

	assert.Equal(t, oracle.StatusDivergent, v.CrossCheck.Status)
	assert.InDelta(t, 0.30, v.CrossCheck.Distance, 1e-9)
	assert.False(t, v.Implausible, "cross-check must not override the verdict")
	assert.Equal(t, 1.0, v.Confidence)
}

func TestAgent_CrossCheckConsistent(t *testing.T) {
	t.Parallel()

	orc := &fakeOracle{resp: finalAt([3]float64{5.1, 5, 1.5})}
	v := runScene(t, NewAgent(DefaultOptions(), WithOracle(orc)), testutil.AboveSupport().Records())
	assert.Equal(t, oracle.StatusConsistent, v.CrossCheck.Status)
}

func TestAgent_CrossCheckUsesSceneLevel(t *testing.T) {
	t.Parallel()

	orc := &fakeOracle{resp: finalAt([3]float64{5, 5, 1.5})}
	a := NewAgent(DefaultOptions(), WithOracle(orc))
	_, err := a.RunScene(context.Background(), SceneMeta{Name: "s", Level: "level1"},
		observation.NewSliceSource(testutil.AboveSupport().Records()))
	require.NoError(t, err)
	require.Len(t, orc.calls, 1)
	assert.Equal(t, "level1", orc.calls[0].Level)
}

func TestAgent_OracleUnavailable(t *testing.T) {
	t.Parallel()

	orc := &fakeOracle{err: errors.New("connection refused")}
	beside := geometry.Planar{X: 15, Z: 5}
	scene := testutil.DropScene{Drop: beside, Rest: beside, RestY: 1, Hold: 3, Settle: 5}

	v := runScene(t, NewAgent(DefaultOptions(), WithOracle(orc)), scene.Records())

	assert.Equal(t, oracle.StatusUnavailable, v.CrossCheck.Status)
	assert.Contains(t, v.CrossCheck.Reason, "connection refused")
	assert.True(t, v.Implausible)
}

func TestAgent_OracleNotTriggeredWithoutDrop(t *testing.T) {
	t.Parallel()

	orc := &fakeOracle{}
	scene := testutil.DropScene{Drop: geometry.Planar{X: 5, Z: 5}, Rest: geometry.Planar{X: 5, Z: 5}, RestY: 1, Hold: 5}
	v := runScene(t, NewAgent(DefaultOptions(), WithOracle(orc)), scene.Records())

	assert.Empty(t, orc.calls)
	assert.Equal(t, oracle.StatusSkipped, v.CrossCheck.Status)
	assert.Equal(t, "drop never confirmed", v.CrossCheck.Reason)
}

func TestAgent_SourceError(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	_, err := NewAgent(DefaultOptions(), WithSink(sink)).RunScene(context.Background(), SceneMeta{Name: "broken"}, errSource{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver crashed")
	assert.Empty(t, sink.verdicts)
}

func TestAgent_SinkError(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{stepErr: errors.New("socket closed")}
	_, err := NewAgent(DefaultOptions(), WithSink(sink)).RunScene(context.Background(), SceneMeta{Name: "s"},
		observation.NewSliceSource(testutil.AboveSupport().Records()))
	require.Error(t, err)
	assert.Len(t, sink.steps, 1)
}

func TestAgent_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAgent(DefaultOptions()).RunScene(ctx, SceneMeta{Name: "s"},
		observation.NewSliceSource(testutil.AboveSupport().Records()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAgent_EmptySceneIsInconclusive(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	v := runScene(t, NewAgent(DefaultOptions(), WithSink(sink)), nil)

	assert.True(t, v.Inconclusive)
	assert.Equal(t, ChoicePlausible, v.Choice())
	assert.Empty(t, sink.steps)
	assert.Len(t, sink.verdicts, 1)
}

func TestAgent_HeatmapAndClock(t *testing.T) {
	t.Parallel()

	r := &stubRenderer{}
	clock := timeutil.NewMockClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	v := runScene(t, NewAgent(DefaultOptions(), WithHeatmap(r), WithClock(clock)), testutil.AboveSupport().Records())

	assert.Equal(t, 1, r.called)
	assert.Equal(t, []byte("png"), v.Heatmap)
}
