//go:build !windows

package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
)

// otherPlatform covers OS families without reparse points, a restartable
// desktop shell or deferred deletion. Symlinks stand in for reparse points.
type otherPlatform struct{}

func newNative() Platform {
	return otherPlatform{}
}

func (otherPlatform) IsReparsePoint(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// ClearReadOnly adds the owner write bit. A read-only directory would
// otherwise block removal of its children.
func (otherPlatform) ClearReadOnly(path string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink != 0 {
		return
	}
	mode := info.Mode().Perm()
	if mode&0o200 != 0 {
		return
	}
	_ = os.Chmod(path, mode|0o200)
}

func (otherPlatform) ScheduleDeleteOnReboot(string) error {
	return ErrUnsupported
}

func (otherPlatform) IsElevated() bool {
	return os.Geteuid() == 0
}

func (otherPlatform) StopShell(context.Context) bool { return false }

func (otherPlatform) StartShell(context.Context) {}

func (otherPlatform) FreeSpace(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func (otherPlatform) Describe(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info.Platform == "" {
		return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("%s %s (%s/%s)", info.Platform, info.PlatformVersion, runtime.GOOS, runtime.GOARCH)
}
