//go:build !windows

package platform

// RelaunchElevated is unsupported without UAC.
func RelaunchElevated([]string) error {
	return ErrUnsupported
}

// OwnsConsole is always false; terminals outlive the processes they start.
func OwnsConsole() bool {
	return false
}
