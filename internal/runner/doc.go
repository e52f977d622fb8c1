// Package runner evaluates many recorded scenes concurrently. Every scene
// gets its own gravity.Agent; the oracle and the sinks in Config are shared
// and must be safe for concurrent use.
package runner
