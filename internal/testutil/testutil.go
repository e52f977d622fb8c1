// Package testutil provides shared test utilities and fixtures.
//
// The scene builders produce step records shaped like the environment
// driver's output so detector, oracle and runner tests share one notion of
// "an object dropped onto a support".
package testutil

import (
	"testing"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
	"github.com/MCS-OSU/mcs-eval3/internal/observation"
)

// Object ids following the environment's naming conventions. The structural
// ids are longer than observation.DefaultIDMinLength.
const (
	TargetID  = "target_object"
	SupportID = "support_a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
	PoleID    = "pole_a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

// Pole colours before and after release.
const (
	HoldColor    = "grey"
	ReleaseColor = "blue"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Box returns an axis-aligned cuboid centred on c in the plane, with its
// bottom at bottom and the given edge length.
func Box(c geometry.Planar, bottom, size float64) geometry.Cuboid {
	h := size / 2
	return geometry.AxisAlignedBox(
		geometry.Point{X: c.X - h, Y: bottom, Z: c.Z - h},
		geometry.Point{X: c.X + h, Y: bottom + size, Z: c.Z + h},
	)
}

// SupportBox is the fixed support used by DropScene: x and z in [0, 10],
// top surface at y = 1.
func SupportBox() geometry.Cuboid {
	return geometry.AxisAlignedBox(geometry.Point{X: 0, Y: 0, Z: 0}, geometry.Point{X: 10, Y: 1, Z: 10})
}

// Frame is the content of one step. Nil cuboids and an empty PoleColor omit
// the corresponding object from the record.
type Frame struct {
	Target    *geometry.Cuboid
	Support   *geometry.Cuboid
	PoleColor string
}

// Record renders a frame as an environment step record.
func Record(step int, f Frame) observation.StepRecord {
	rec := observation.StepRecord{
		Step:                 step,
		ObjectList:           map[string]observation.ObjectState{},
		StructuralObjectList: map[string]observation.StructuralObject{},
	}
	floor := geometry.AxisAlignedBox(geometry.Point{X: -50, Y: -0.1, Z: -50}, geometry.Point{X: 50, Y: 0, Z: 50})
	rec.StructuralObjectList[observation.FloorID] = observation.StructuralObject{Dimensions: floor[:]}

	if f.Target != nil {
		c := *f.Target
		minY, maxY := c.VerticalExtent()
		top, _, _ := geometry.ExtractBoundingFaces(c, geometry.DefaultVerticalTolerance)
		pos := geometry.Point{X: top.Centroid.X, Y: (minY + maxY) / 2, Z: top.Centroid.Z}
		rec.ObjectList[TargetID] = observation.ObjectState{Dimensions: c[:], Position: &pos}
	}
	if f.Support != nil {
		c := *f.Support
		rec.StructuralObjectList[SupportID] = observation.StructuralObject{Dimensions: c[:]}
	}
	if f.PoleColor != "" {
		pole := geometry.AxisAlignedBox(geometry.Point{X: 4.9, Y: 6, Z: 4.9}, geometry.Point{X: 5.1, Y: 12, Z: 5.1})
		rec.StructuralObjectList[PoleID] = observation.StructuralObject{
			Dimensions:       pole[:],
			TextureColorList: []string{f.PoleColor},
		}
	}
	return rec
}

// DropScene describes a unit cube held above SupportBox, released, and
// observed until it settles.
type DropScene struct {
	Drop   geometry.Planar // cube centre while held
	Rest   geometry.Planar // cube centre once settled
	RestY  float64         // cube bottom once settled
	Hold   int             // steps with the pole gripping, at least 1
	Settle int             // steps after release, at least 1
}

// AboveSupport is a cube dropped onto the middle of the support and staying
// there.
func AboveSupport() DropScene {
	c := geometry.Planar{X: 5, Z: 5}
	return DropScene{Drop: c, Rest: c, RestY: 1, Hold: 3, Settle: 5}
}

// DropHeight is the cube bottom while held.
const DropHeight = 5.0

// Records renders the scene. The pole changes colour on the first step after
// the hold, so the drop step is Hold-1. The cube moves linearly to its rest
// position over the first few release steps and is stationary afterwards.
func (d DropScene) Records() []observation.StepRecord {
	support := SupportBox()
	var out []observation.StepRecord

	held := Box(d.Drop, DropHeight, 1)
	for i := 0; i < d.Hold; i++ {
		out = append(out, Record(i, Frame{Target: &held, Support: &support, PoleColor: HoldColor}))
	}

	fall := min(d.Settle, 3)
	for k := 0; k < d.Settle; k++ {
		f := 1.0
		if k < fall {
			f = float64(k+1) / float64(fall)
		}
		c := geometry.Planar{
			X: d.Drop.X + (d.Rest.X-d.Drop.X)*f,
			Z: d.Drop.Z + (d.Rest.Z-d.Drop.Z)*f,
		}
		if f == 1 {
			c = d.Rest
		}
		box := Box(c, DropHeight+(d.RestY-DropHeight)*f, 1)
		out = append(out, Record(d.Hold+k, Frame{Target: &box, Support: &support, PoleColor: ReleaseColor}))
	}
	return out
}
