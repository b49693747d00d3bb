// Package sandbox defines the isolation port: disposable execution
// environments in which one classification materializes a revision and
// runs tests.
package sandbox

import "context"

// Box is one isolated, disposable execution environment. A Box is owned
// by exactly one classification at a time and is discarded afterwards.
type Box interface {
	// ID returns the unique handle of the environment.
	ID() string

	// WorkDir returns the host path of the sandbox working tree. Version
	// control operations run host-side against this path.
	WorkDir() string

	// ExecRoot returns the path of the same working tree as addressed by
	// scripts passed to Exec.
	ExecRoot() string

	// Exec runs a shell script inside the environment and returns its
	// combined output. The context bounds the invocation.
	Exec(ctx context.Context, script string) (string, error)
}

// Provisioner acquires and releases Boxes for one isolation strategy.
// Strategy selection happens once at startup; a Provisioner is then bound
// for the whole session.
type Provisioner interface {
	// Name returns the strategy identifier, such as "docker" or "process".
	Name() string

	// Acquire provisions a fresh Box.
	Acquire(ctx context.Context) (Box, error)

	// Release discards a Box. It is idempotent and never fails the
	// caller; a vanished resource is logged and swallowed.
	Release(ctx context.Context, box Box)
}
