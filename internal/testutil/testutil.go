// Package testutil provides fixtures that point every OS location the
// cleaner reads at directories under t.TempDir().
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Fixture is an isolated set of OS locations.
type Fixture struct {
	T    *testing.T
	Root string

	Temp        string // os.TempDir()
	Local       string // %LOCALAPPDATA%
	Roaming     string // %APPDATA%
	WinDir      string // %WINDIR% and %SystemRoot%
	ProgramData string // %ProgramData%
}

// NewFixture creates the directories and points the environment at them.
// Every WINSWEEP_* toggle is cleared.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	root := t.TempDir()
	f := &Fixture{
		T:           t,
		Root:        root,
		Temp:        filepath.Join(root, "tmp"),
		Local:       filepath.Join(root, "Local"),
		Roaming:     filepath.Join(root, "Roaming"),
		WinDir:      filepath.Join(root, "Windows"),
		ProgramData: filepath.Join(root, "ProgramData"),
	}
	for _, d := range []string{f.Temp, f.Local, f.Roaming, f.WinDir, f.ProgramData} {
		f.Mkdir(d)
	}

	for _, k := range []string{"TMPDIR", "TMP", "TEMP"} {
		t.Setenv(k, f.Temp)
	}
	t.Setenv("LOCALAPPDATA", f.Local)
	t.Setenv("APPDATA", f.Roaming)
	t.Setenv("WINDIR", f.WinDir)
	t.Setenv("SystemRoot", f.WinDir)
	t.Setenv("ProgramData", f.ProgramData)
	t.Setenv("USERPROFILE", "")
	for _, k := range []string{
		"WINSWEEP_ALLOW_SYSTEM_CLEAN",
		"WINSWEEP_FORCE_NO_SYSTEM_CLEAN",
		"WINSWEEP_PREFETCH",
		"WINSWEEP_MAX_PARALLELISM",
	} {
		t.Setenv(k, "")
	}
	return f
}

// Mkdir creates dir and its parents and returns it.
func (f *Fixture) Mkdir(dir string) string {
	f.T.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
}

// WriteFile creates path with size bytes of content, creating parents.
func (f *Fixture) WriteFile(path string, size int) string {
	f.T.Helper()
	f.Mkdir(filepath.Dir(path))
	if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644); err != nil {
		f.T.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// Exists reports whether path exists without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Snapshot maps every path under root to its size (-1 for directories).
func Snapshot(t *testing.T, root string) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			out[p] = -1
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out[p] = info.Size()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to snapshot %s: %v", root, err)
	}
	return out
}
