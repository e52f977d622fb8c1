package gravity

import (
	"fmt"
	"math"

	"github.com/MCS-OSU/mcs-eval3/internal/geometry"
)

// SupportRangeMode selects how the support rectangle is derived from the
// support's top face.
type SupportRangeMode int

const (
	// SupportRangeCorrected spans X from the corners' X values and Z from
	// their Z values.
	SupportRangeCorrected SupportRangeMode = iota
	// SupportRangeLegacy reproduces the stability test of earlier agents for
	// comparison with their results. X is checked against the support's X
	// span as usual, but the second check compares the target face's height
	// against [support top height, support max X] instead of testing depth.
	SupportRangeLegacy
)

func (m SupportRangeMode) String() string {
	switch m {
	case SupportRangeCorrected:
		return "corrected"
	case SupportRangeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("SupportRangeMode(%d)", int(m))
	}
}

// SupportRange returns the in-plane rectangle of the support's top face.
func SupportRange(supportTop geometry.ObjectFace) (min, max geometry.Planar) {
	return supportTop.Bounds()
}

// legacyRange returns the interval the legacy mode tests the target height
// against: the lowest corner height of the support top up to its largest X.
func legacyRange(supportTop geometry.ObjectFace) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range supportTop.Corners {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.X)
	}
	return lo, hi
}

// PredictStability reports whether the target, released with the given
// bottom face, should come to rest on the support: its centroid must lie
// within the support rectangle, bounds inclusive. This is a rectangular
// containment test and assumes axis-aligned cuboids.
func PredictStability(target, supportTop geometry.ObjectFace, mode SupportRangeMode) bool {
	if len(supportTop.Corners) == 0 {
		return false
	}
	min, max := SupportRange(supportTop)
	c := target.Centroid
	if c.X < min.X || c.X > max.X {
		return false
	}
	if mode == SupportRangeLegacy {
		lo, hi := legacyRange(supportTop)
		return lo <= target.Height && target.Height <= hi
	}
	return min.Z <= c.Z && c.Z <= max.Z
}
