//go:build windows

package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows"
)

const shellProcessName = "explorer.exe"

type windowsPlatform struct{}

func newNative() Platform {
	return windowsPlatform{}
}

// longPath adds the \\?\ prefix for paths exceeding MAX_PATH.
func longPath(path string) string {
	if len(path) >= 260 && !strings.HasPrefix(path, `\\?\`) {
		return `\\?\` + filepath.Clean(path)
	}
	return path
}

func attributes(path string) (uint32, *uint16, bool) {
	p, err := windows.UTF16PtrFromString(longPath(path))
	if err != nil {
		return 0, nil, false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return 0, nil, false
	}
	return attrs, p, true
}

func (windowsPlatform) IsReparsePoint(path string) bool {
	attrs, _, ok := attributes(path)
	return ok && attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0
}

func (windowsPlatform) ClearReadOnly(path string) {
	attrs, p, ok := attributes(path)
	if !ok || attrs&windows.FILE_ATTRIBUTE_READONLY == 0 {
		return
	}
	_ = windows.SetFileAttributes(p, attrs&^windows.FILE_ATTRIBUTE_READONLY)
}

func (windowsPlatform) ScheduleDeleteOnReboot(path string) error {
	p, err := windows.UTF16PtrFromString(longPath(path))
	if err != nil {
		return err
	}
	// A nil destination with DELAY_UNTIL_REBOOT registers a pending delete.
	if err := windows.MoveFileEx(p, nil, windows.MOVEFILE_DELAY_UNTIL_REBOOT); err != nil {
		return fmt.Errorf("MoveFileEx %s: %w", path, err)
	}
	return nil
}

func (windowsPlatform) IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// StopShell kills every explorer.exe owned by the session. Explorer holds
// thumbcache_*.db and iconcache_*.db open for as long as it runs.
func (windowsPlatform) StopShell(ctx context.Context) bool {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false
	}

	stopped := false
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !strings.EqualFold(name, shellProcessName) {
			continue
		}
		if err := p.KillWithContext(ctx); err == nil {
			stopped = true
		}
	}

	if stopped {
		select {
		case <-time.After(shellSettleDelay):
		case <-ctx.Done():
		}
	}
	return stopped
}

// StartShell relaunches Explorer detached. The child must outlive ctx, so
// exec.CommandContext is deliberately not used here.
func (windowsPlatform) StartShell(ctx context.Context) {
	exe := shellProcessName
	if w := os.Getenv("WINDIR"); w != "" {
		exe = filepath.Join(w, shellProcessName)
	}
	cmd := exec.Command(exe)
	if err := cmd.Start(); err != nil {
		return
	}
	_ = cmd.Process.Release()
}

func (windowsPlatform) FreeSpace(ctx context.Context, path string) (uint64, error) {
	vol := filepath.VolumeName(path)
	if vol == "" {
		vol = path
	} else {
		vol += `\`
	}
	usage, err := disk.UsageWithContext(ctx, vol)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

type win32OperatingSystem struct {
	Caption     string
	BuildNumber string
}

// Describe prefers the WMI caption ("Microsoft Windows 11 Pro") and falls
// back to the version numbers reported by ntdll.
func (windowsPlatform) Describe(ctx context.Context) string {
	var dst []win32OperatingSystem
	if err := wmi.Query("SELECT Caption, BuildNumber FROM Win32_OperatingSystem", &dst); err == nil && len(dst) > 0 {
		return fmt.Sprintf("%s (Build %s)", strings.TrimSpace(dst[0].Caption), dst[0].BuildNumber)
	}
	major, minor, build := windows.RtlGetNtVersionNumbers()
	return describeNT(major, minor, build)
}

// describeNT names an NT version triple. Windows 11 still reports 10.0 and
// is told apart by build number; the top bits of build are flags.
func describeNT(major, minor, build uint32) string {
	build &= 0xFFFF
	name := fmt.Sprintf("Windows NT %d.%d", major, minor)
	if major == 10 && minor == 0 {
		name = "Windows 10"
		if build >= 22000 {
			name = "Windows 11"
		}
	}
	return fmt.Sprintf("%s (Build %d)", name, build)
}
