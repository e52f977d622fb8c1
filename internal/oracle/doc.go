// Package oracle is the advisory rigid-body cross-check.
//
// A StabilityOracle replays a recorded trajectory in an external physics
// simulator and returns per-object simulated positions. The detector compares
// the simulated final position of the target with the observed one; the
// result is logged alongside the verdict and never overrides it.
//
// Simulated positions use the oracle's Z-up frame. ToOracleFrame is the only
// place observed scene points (Y-up) are permuted into that frame.
//
// Dependency rule: oracle may depend on geometry and observation only.
package oracle
