//go:build windows

package platform

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow      = kernel32.NewProc("GetConsoleWindow")
	procGetConsoleProcessList = kernel32.NewProc("GetConsoleProcessList")
)

// RelaunchElevated starts the current executable again through the UAC
// "runas" verb with args and the current working directory. The caller
// should exit once it returns nil.
func RelaunchElevated(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	verb, err := windows.UTF16PtrFromString("runas")
	if err != nil {
		return err
	}
	file, err := windows.UTF16PtrFromString(exe)
	if err != nil {
		return err
	}
	var params, dir *uint16
	if len(args) > 0 {
		if params, err = windows.UTF16PtrFromString(windows.ComposeCommandLine(args)); err != nil {
			return err
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		dir, _ = windows.UTF16PtrFromString(cwd)
	}
	if err := windows.ShellExecute(0, verb, file, params, dir, windows.SW_SHOWNORMAL); err != nil {
		return fmt.Errorf("ShellExecute runas: %w", err)
	}
	return nil
}

// OwnsConsole reports whether this process is the only one attached to its
// console, which is the case when it was started by double-clicking in
// Explorer. The window closes as soon as the process exits.
func OwnsConsole() bool {
	if err := procGetConsoleWindow.Find(); err != nil {
		return false
	}
	if hwnd, _, _ := procGetConsoleWindow.Call(); hwnd == 0 {
		return false
	}
	if err := procGetConsoleProcessList.Find(); err != nil {
		return false
	}
	var pids [2]uint32
	n, _, _ := procGetConsoleProcessList.Call(uintptr(unsafe.Pointer(&pids[0])), uintptr(len(pids)))
	return n == 1
}
