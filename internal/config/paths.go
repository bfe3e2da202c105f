package config

import (
	"os"
	"path/filepath"
)

// Location helpers return "" when the backing environment variable is unset,
// so callers can skip the whole subtree instead of guessing a drive letter.

// LocalAppData returns %LOCALAPPDATA%.
func LocalAppData() string {
	return os.Getenv("LOCALAPPDATA")
}

// AppData returns the roaming app data directory (%APPDATA%).
func AppData() string {
	return os.Getenv("APPDATA")
}

// WinDir returns %WINDIR%.
func WinDir() string {
	return os.Getenv("WINDIR")
}

// SystemRoot returns %SystemRoot%. Usually the same directory as WinDir.
func SystemRoot() string {
	return os.Getenv("SystemRoot")
}

// ProgramData returns %ProgramData%.
func ProgramData() string {
	return os.Getenv("ProgramData")
}

// UserTemp returns the per-user temporary directory as the OS reports it.
func UserTemp() string {
	return os.TempDir()
}

// systemDrive returns the system drive with a trailing backslash (e.g. C:\).
// Falls back to C:\ only if %SYSTEMDRIVE% is not set.
func systemDrive() string {
	if d := os.Getenv("SYSTEMDRIVE"); d != "" {
		return d + `\`
	}
	return `C:\`
}

// programFiles returns the Program Files directory.
func programFiles() string {
	if p := os.Getenv("PROGRAMFILES"); p != "" {
		return p
	}
	return `C:\Program Files`
}

// programFilesX86 returns the Program Files (x86) directory.
func programFilesX86() string {
	if p := os.Getenv("PROGRAMFILES(X86)"); p != "" {
		return p
	}
	return `C:\Program Files (x86)`
}

// winDirOrDefault is WinDir with the conventional fallback. Only used for
// the never-delete list, where a guess errs on the safe side.
func winDirOrDefault() string {
	if w := WinDir(); w != "" {
		return w
	}
	return `C:\Windows`
}

func programDataOrDefault() string {
	if p := ProgramData(); p != "" {
		return p
	}
	return `C:\ProgramData`
}

// SensitiveDirs returns directories that must never be removed as a whole,
// whatever the catalog or the allowed prefixes say. Comparison against this
// list is by exact canonical path; children of these directories (for
// example %WINDIR%\Temp) are not covered.
func SensitiveDirs() []string {
	w := winDirOrDefault()
	sd := systemDrive()
	dirs := []string{
		w,
		filepath.Join(w, "System32"),
		filepath.Join(w, "SysWOW64"),
		filepath.Join(w, "WinSxS"),
		filepath.Join(w, "assembly"),
		filepath.Join(w, "System32", "config"),
		filepath.Join(w, "Installer"),
		filepath.Join(w, "servicing"),
		filepath.Join(sd, "Boot"),
		filepath.Join(sd, "EFI"),
		filepath.Join(sd, "Recovery"),
		filepath.Join(sd, "Users"),
		programFiles(),
		programFilesX86(),
		programDataOrDefault(),
	}
	if sr := SystemRoot(); sr != "" {
		dirs = append(dirs, sr)
	}
	if pfw := os.Getenv("ProgramW6432"); pfw != "" {
		dirs = append(dirs, pfw)
	}
	if up := os.Getenv("USERPROFILE"); up != "" {
		dirs = append(dirs, up)
	}
	return dirs
}
