// Package sink holds gravity.PredictionSink implementations: a logging sink,
// an in-memory recorder, a fan-out, and a redis stream publisher.
package sink
