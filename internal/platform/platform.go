// Package platform isolates every OS-conditional capability the cleaner
// needs behind one interface. Exactly one implementation is compiled in per
// OS family; families without a desktop shell or deferred deletion get
// no-op or error-returning behavior instead of ad hoc branches in the engine.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned by capabilities the current OS does not have.
var ErrUnsupported = errors.New("operation not supported on this platform")

// shellSettleDelay gives a terminated shell time to release its file locks.
const shellSettleDelay = 300 * time.Millisecond

// Platform is the capability set the engine and CLI depend on.
type Platform interface {
	// IsReparsePoint reports whether path is a junction, symlink or other
	// link-like entry that must be unlinked rather than traversed.
	IsReparsePoint(path string) bool

	// ClearReadOnly best-effort removes the read-only attribute from path.
	ClearReadOnly(path string)

	// ScheduleDeleteOnReboot asks the OS to delete path at next restart.
	ScheduleDeleteOnReboot(path string) error

	// IsElevated reports whether the process runs with administrative rights.
	IsElevated() bool

	// StopShell terminates the desktop shell to release locks on its caches.
	// It reports whether a shell was actually stopped.
	StopShell(ctx context.Context) bool

	// StartShell restarts the desktop shell after StopShell.
	StartShell(ctx context.Context)

	// FreeSpace returns the free bytes on the volume holding path.
	FreeSpace(ctx context.Context, path string) (uint64, error)

	// Describe returns a human-readable OS description.
	Describe(ctx context.Context) string
}

// Current returns the implementation for the running OS.
func Current() Platform {
	return newNative()
}
