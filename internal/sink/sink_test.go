package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
)

type failingSink struct{ err error }

func (f failingSink) MakeStepPrediction(context.Context, gravity.StepPrediction) error { return f.err }
func (f failingSink) EndScene(context.Context, gravity.Verdict) error                { return f.err }

func TestMultiCallsEverySink(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	boom := errors.New("boom")
	m := Multi{failingSink{err: boom}, rec, Log{}}

	err := m.MakeStepPrediction(context.Background(), gravity.Plausible("s", 1))
	assert.ErrorIs(t, err, boom)
	err = m.EndScene(context.Background(), gravity.Verdict{Scene: "s", Implausible: true, Confidence: 1})
	assert.ErrorIs(t, err, boom)

	require.Len(t, rec.Steps(), 1)
	require.Len(t, rec.Verdicts(), 1)
	assert.Equal(t, gravity.ChoiceImplausible, rec.Verdicts()[0].Choice())
}

func TestMultiEmpty(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Multi{}.EndScene(context.Background(), gravity.Verdict{}))
}

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestRedisPublishesVerdicts(t *testing.T) {
	t.Parallel()

	fs := &fakeStream{}
	r := NewRedis(fs, "voe:predictions", WithRunID("run-1"), WithMaxLen(1000))

	require.NoError(t, r.MakeStepPrediction(context.Background(), gravity.Plausible("s", 0)))
	assert.Empty(t, fs.args, "steps are not published by default")

	require.NoError(t, r.EndScene(context.Background(), gravity.Verdict{Scene: "s", Implausible: true, Confidence: 1}))
	require.Len(t, fs.args, 1)

	a := fs.args[0]
	assert.Equal(t, "voe:predictions", a.Stream)
	assert.Equal(t, int64(1000), a.MaxLen)
	assert.True(t, a.Approx)

	values := a.Values.(map[string]any)
	assert.Equal(t, "verdict", values["kind"])
	assert.Equal(t, "s", values["scene"])
	assert.Equal(t, "run-1", values["run_id"])

	var decoded gravity.Verdict
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.True(t, decoded.Implausible)
}

func TestRedisPublishesSteps(t *testing.T) {
	t.Parallel()

	fs := &fakeStream{}
	r := NewRedis(fs, "stream", WithSteps())
	require.NoError(t, r.MakeStepPrediction(context.Background(), gravity.Plausible("s", 4)))
	require.Len(t, fs.args, 1)
	assert.Equal(t, "step", fs.args[0].Values.(map[string]any)["kind"])
	assert.Zero(t, fs.args[0].MaxLen)
}

func TestRedisPayloadFieldNames(t *testing.T) {
	t.Parallel()

	fs := &fakeStream{}
	r := NewRedis(fs, "stream", WithSteps())
	step := gravity.Plausible("s", 2)
	step.HeatmapImg = []byte("png")
	require.NoError(t, r.MakeStepPrediction(context.Background(), step))
	require.NoError(t, r.EndScene(context.Background(), gravity.Verdict{Scene: "s", Confidence: 1, ViolationsXY: []geometry.Planar{}}))
	require.Len(t, fs.args, 2)

	var stepFields map[string]any
	require.NoError(t, json.Unmarshal([]byte(fs.args[0].Values.(map[string]any)["payload"].(string)), &stepFields))
	assert.Equal(t, "plausible", stepFields["choice"])
	assert.Equal(t, []any{}, stepFields["violations_xy_list"])
	assert.Contains(t, stepFields, "heatmap_img")

	var verdictFields map[string]any
	require.NoError(t, json.Unmarshal([]byte(fs.args[1].Values.(map[string]any)["payload"].(string)), &verdictFields))
	assert.Contains(t, verdictFields, "violations_xy_list")
	assert.NotContains(t, verdictFields, "heatmap_img", "absent when no image was rendered")
}

func TestRedisError(t *testing.T) {
	t.Parallel()

	fs := &fakeStream{err: errors.New("READONLY")}
	err := NewRedis(fs, "stream").EndScene(context.Background(), gravity.Verdict{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xadd stream")
}
