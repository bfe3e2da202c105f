package reclaim

import (
	"io/fs"
	"os"
)

// FS is the set of filesystem calls the reclaimer makes. Every mutation goes
// through it so callers can observe or restrict what a run does.
type FS interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	Remove(path string) error
	RemoveAll(path string) error
}

// OSFS is the real filesystem.
type OSFS struct{}

func (OSFS) Stat(path string) (fs.FileInfo, error)      { return os.Stat(path) }
func (OSFS) Lstat(path string) (fs.FileInfo, error)     { return os.Lstat(path) }
func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }
func (OSFS) Remove(path string) error                   { return os.Remove(path) }
func (OSFS) RemoveAll(path string) error                { return os.RemoveAll(path) }

// Capabilities is the slice of OS-specific behavior the reclaimer needs.
// platform.Platform satisfies it.
type Capabilities interface {
	IsReparsePoint(path string) bool
	ClearReadOnly(path string)
	ScheduleDeleteOnReboot(path string) error
}
