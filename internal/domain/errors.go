// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrProvision indicates the sandbox isolation mechanism is unavailable.
// Fatal to the whole session, never retried.
var ErrProvision = errors.New("sandbox provisioning failed")

// ErrMaterialize indicates a base revision could not be checked out, either
// a bad reference or a network failure. Aborts the classification; callers
// may retry with backoff.
var ErrMaterialize = errors.New("revision materialization failed")

// ErrPatchApply indicates the diff does not apply cleanly against the
// materialized tree. Retrying with the same inputs cannot succeed.
var ErrPatchApply = errors.New("patch application failed")
