// Package internalerr holds sentinel errors shared across every stage of the
// phrase-mining pipeline, so callers can use errors.Is instead of string
// matching stderr.
package internalerr

import "errors"

// Sentinel errors for common cases.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotLoaded is returned by Matcher operations invoked before Load
	// has completed successfully at least once. It is a recoverable,
	// programmer-facing error: the caller is expected to Load and retry.
	ErrNotLoaded = errors.New("matcher: not loaded")

	// ErrArtifactMismatch is returned at load time when the manifest,
	// automaton, and payload table disagree (e.g. pattern counts differ).
	ErrArtifactMismatch = errors.New("matcher: artifact mismatch")

	// ErrCountOverflow is returned when an n-gram or token-pair counter
	// would exceed the 32-bit counting range.
	ErrCountOverflow = errors.New("count overflow")

	// ErrSeparatorCollision is returned at build time when a real token's
	// assigned ID equals the reserved separator ID.
	ErrSeparatorCollision = errors.New("token id collides with separator")
)
