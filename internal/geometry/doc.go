// Package geometry owns the cuboid and face primitives used by the
// gravity detector.
//
// Axis convention: every Point uses Y as the vertical axis, matching the
// environment's observation schema. The two in-plane axes are X and Z, and
// face centroids are reported as Planar{X, Z}.
//
// Key types: Point, Cuboid, Planar, ObjectFace.
//
// Dependency rule: geometry depends on nothing else in this module.
package geometry
