// Package sqlite persists episode verdicts.
//
// The schema is managed by golang-migrate from migrations embedded in the
// binary. Stores take a *sql.DB opened through Open so connection PRAGMAs are
// applied consistently.
package sqlite
