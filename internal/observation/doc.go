// Package observation models the per-step records produced by the
// environment driver and the StepSource capability that yields them.
//
// Responsibilities: the object_list / structural_object_list schema,
// conversion of corner lists into geometry.Cuboid, the id conventions used to
// pick the target, support and pole, and offline replay of recorded scenes.
//
// Dependency rule: observation may depend on geometry only.
package observation
