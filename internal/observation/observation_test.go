package observation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
)

const (
	supportID = "occluder_wall_2f1a6f8e-9c3b-4f27-a0a1-5d0c3a3b7e11"
	poleID    = "occluder_pole_2f1a6f8e-9c3b-4f27-a0a1-5d0c3a3b7e11"
)

func boxCorners() []geometry.Point {
	c := geometry.AxisAlignedBox(geometry.Point{}, geometry.Point{X: 1, Y: 1, Z: 1})
	return c[:]
}

func TestSelector_TargetIDPicksLowest(t *testing.T) {
	t.Parallel()

	rec := &StepRecord{ObjectList: map[string]ObjectState{
		"target-b": {}, "target-a": {}, "target-c": {},
	}}
	s := DefaultSelector()
	for i := 0; i < 20; i++ {
		assert.Equal(t, "target-a", s.TargetID(rec))
	}

	assert.Equal(t, "", s.TargetID(&StepRecord{}))
	assert.Equal(t, "", s.TargetID(nil))
}

func TestSelector_StructuralIDs(t *testing.T) {
	t.Parallel()

	require.Greater(t, len(supportID), DefaultIDMinLength)
	require.Greater(t, len(poleID), DefaultIDMinLength)

	tests := []struct {
		name        string
		ids         []string
		wantSupport string
		wantPole    string
	}{
		{name: "support and pole", ids: []string{supportID, poleID, FloorID}, wantSupport: supportID, wantPole: poleID},
		{name: "short ids ignored", ids: []string{"wall", "pole_short", FloorID}},
		{name: "pole only", ids: []string{poleID}, wantPole: poleID},
		{name: "support only", ids: []string{supportID}, wantSupport: supportID},
		{name: "two supports lowest wins", ids: []string{supportID, "b" + supportID, "a" + supportID}, wantSupport: "a" + supportID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &StepRecord{StructuralObjectList: map[string]StructuralObject{}}
			for _, id := range tt.ids {
				rec.StructuralObjectList[id] = StructuralObject{}
			}
			support, pole := DefaultSelector().StructuralIDs(rec)
			assert.Equal(t, tt.wantSupport, support)
			assert.Equal(t, tt.wantPole, pole)
		})
	}
}

func TestObjectConversions(t *testing.T) {
	t.Parallel()

	obj := ObjectState{Dimensions: boxCorners()}
	c, ok := obj.Cuboid()
	require.True(t, ok)
	assert.Equal(t, geometry.Point{}, c[0])

	_, ok = ObjectState{Dimensions: boxCorners()[:4]}.Cuboid()
	assert.False(t, ok)

	pole := StructuralObject{TextureColorList: []string{"magenta", "grey"}}
	sig, ok := pole.Signal()
	assert.True(t, ok)
	assert.Equal(t, "magenta", sig)

	_, ok = StructuralObject{}.Signal()
	assert.False(t, ok)
}

func TestStepRecordLookups(t *testing.T) {
	t.Parallel()

	rec := &StepRecord{
		ObjectList:           map[string]ObjectState{"t": {Dimensions: boxCorners()}},
		StructuralObjectList: map[string]StructuralObject{supportID: {}},
	}
	_, ok := rec.Target("t")
	assert.True(t, ok)
	_, ok = rec.Target("")
	assert.False(t, ok)
	_, ok = rec.Structural(supportID)
	assert.True(t, ok)
	_, ok = rec.Structural(poleID)
	assert.False(t, ok)

	var nilRec *StepRecord
	_, ok = nilRec.Target("t")
	assert.False(t, ok)
}

func TestSliceSource(t *testing.T) {
	t.Parallel()

	src := NewSliceSource([]StepRecord{{}, {}, {}})
	ctx := context.Background()

	for want := 0; want < 3; want++ {
		rec, ok, err := src.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, rec.Step)
	}
	rec, ok, err := src.Next(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)
	assert.Equal(t, 0, src.Remaining())
}

func TestSliceSource_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := NewSliceSource([]StepRecord{{}}).Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadScene_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "gravity_0001.json")
	doc := `{
  "name": "gravity_0001",
  "level": "level2",
  "steps": [
    {"step": 1, "object_list": {"target": {"dimensions": [
      {"x":0,"y":0,"z":0},{"x":1,"y":0,"z":0},{"x":0,"y":0,"z":1},{"x":1,"y":0,"z":1},
      {"x":0,"y":1,"z":0},{"x":1,"y":1,"z":0},{"x":0,"y":1,"z":1},{"x":1,"y":1,"z":1}],
      "position": {"x":0.5,"y":0.5,"z":0.5}}},
     "structural_object_list": {}}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	sc, err := LoadScene(path)
	require.NoError(t, err)
	assert.Equal(t, "gravity_0001", sc.Name)
	assert.Equal(t, "level2", sc.Level)
	require.Len(t, sc.Steps, 1)

	target, ok := sc.Steps[0].Target("target")
	require.True(t, ok)
	require.NotNil(t, target.Position)
	assert.Equal(t, 0.5, target.Position.Y)
	_, ok = target.Cuboid()
	assert.True(t, ok)
}

func TestLoadScene_JSONL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "drop_beside.jsonl")

	var lines []string
	for i := 0; i < 3; i++ {
		rec := &StepRecord{Step: i + 1, ObjectList: map[string]ObjectState{"t": {Dimensions: boxCorners()}}}
		b, err := EncodeRecord(rec)
		require.NoError(t, err)
		lines = append(lines, string(b), "")
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	sc, err := LoadScene(path)
	require.NoError(t, err)
	assert.Equal(t, "drop_beside", sc.Name)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, 3, sc.Steps[2].Step)
}

func TestLoadScene_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadScene(filepath.Join(dir, "scene.txt"))
	assert.ErrorContains(t, err, "extension")

	_, err = LoadScene(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "stat")

	bad := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte("{\"step\": 1}\n{not json\n"), 0o644))
	_, err = LoadScene(bad)
	assert.ErrorContains(t, err, "line 2")
}
