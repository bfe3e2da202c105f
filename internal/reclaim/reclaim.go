// Package reclaim removes filtered targets and accounts for what was freed.
//
// The directory phase runs on a fixed pool of workers that claim targets
// through a shared atomic cursor, so one slow directory never holds up the
// rest of the list. The file phase runs afterwards on the calling goroutine.
// Per-target failures are skipped, never returned.
package reclaim

import (
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/safety"
	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
)

// maxDefaultWorkers caps the pool when no override is given.
const maxDefaultWorkers = 8

// Options selects the accounting mode for a run.
type Options struct {
	DryRun bool

	// Exact pre-counts every subtree before removing it. Without it a
	// successful wholesale removal counts one directory and no bytes.
	Exact bool

	// MaxParallelism overrides the pool size; 0 means unset.
	MaxParallelism int
}

// Reclaimer performs the deletions of one run.
type Reclaimer struct {
	fs    FS
	caps  Capabilities
	stats *stats.Aggregator
	opts  Options
}

// New returns a reclaimer that records into agg.
func New(fsys FS, caps Capabilities, agg *stats.Aggregator, opts Options) *Reclaimer {
	if fsys == nil {
		fsys = OSFS{}
	}
	return &Reclaimer{fs: fsys, caps: caps, stats: agg, opts: opts}
}

// WorkerCount returns min(NumCPU, 8), or override clamped to [1, NumCPU].
func WorkerCount(override int) int {
	return workerCount(override, runtime.NumCPU())
}

func workerCount(override, cpus int) int {
	if cpus < 1 {
		cpus = 1
	}
	if override > 0 {
		return min(override, cpus)
	}
	return min(cpus, maxDefaultWorkers)
}

// Dirs processes every directory target and returns once all workers have
// finished.
func (r *Reclaimer) Dirs(targets []string) {
	if len(targets) == 0 {
		return
	}
	workers := min(WorkerCount(r.opts.MaxParallelism), len(targets))

	var (
		cursor atomic.Int64
		wg     sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(targets) {
					return
				}
				r.dir(targets[i])
			}
		}()
	}
	wg.Wait()
}

// dir applies the per-directory procedure to one target.
func (r *Reclaimer) dir(path string) {
	info, err := r.fs.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if safety.IsRoot(path) || safety.IsSensitive(path) {
		logger.Debug("Refusing protected directory", "path", path)
		return
	}

	if r.caps.IsReparsePoint(path) {
		r.unlink(path)
		return
	}

	if r.opts.DryRun {
		t := r.walk(path)
		r.record(t, path)
		logger.Debug("Would remove directory", "path", path,
			"files", t.files, "dirs", t.dirs+1, "bytes", t.bytes)
		return
	}

	if r.removeTree(path) {
		return
	}
	r.shallow(path)
}

// removeTree removes path wholesale in the current accounting mode and
// reports whether it succeeded.
func (r *Reclaimer) removeTree(path string) bool {
	var t tally
	if r.opts.Exact {
		t = r.walk(path)
	}
	r.caps.ClearReadOnly(path)
	if err := r.fs.RemoveAll(path); err != nil {
		logger.Debug("Wholesale removal failed", "path", path, "error", err)
		return false
	}
	r.record(t, path)
	logger.Debug("Removed directory", "path", path, "exact", r.opts.Exact,
		"files", t.files, "bytes", t.bytes)
	return true
}

// record adds a removed subtree (root included) to the counters.
func (r *Reclaimer) record(t tally, root string) {
	if t.files > 0 {
		r.stats.AddFiles(t.files)
	}
	if t.bytes > 0 {
		r.stats.AddBytes(t.bytes)
	}
	r.stats.AddDirs(t.dirs + 1)
	r.stats.MarkCleaned(root)
}

// unlink removes a reparse point without touching its target.
func (r *Reclaimer) unlink(path string) {
	if r.opts.DryRun {
		r.stats.AddLinks(1)
		logger.Debug("Would remove link", "path", path)
		return
	}
	if err := r.fs.Remove(path); err != nil {
		logger.Debug("Link removal failed", "path", path, "error", err)
		return
	}
	r.stats.AddLinks(1)
	logger.Debug("Removed link", "path", path)
}

// shallow handles a directory whose wholesale removal failed: each
// immediate child is removed on its own and grandchildren of a child that
// fails are left in place.
func (r *Reclaimer) shallow(dir string) {
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		return
	}

	removedFiles := false
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())

		if r.caps.IsReparsePoint(p) {
			r.unlink(p)
			continue
		}
		if e.IsDir() {
			r.removeTree(p)
			continue
		}

		r.caps.ClearReadOnly(p)
		var size uint64
		if info, err := r.fs.Lstat(p); err == nil && info.Size() > 0 {
			size = uint64(info.Size())
		}
		if err := r.fs.Remove(p); err != nil {
			logger.Debug("File removal failed", "path", p, "error", err)
			continue
		}
		r.stats.AddFiles(1)
		r.stats.AddBytes(size)
		removedFiles = true
	}

	if removedFiles {
		r.stats.MarkCleaned(dir)
	}
}

// Files processes file targets sequentially. A file that cannot be removed
// is scheduled for deletion at next restart and, if that succeeds, counted
// as freed.
func (r *Reclaimer) Files(targets []string) {
	for _, f := range targets {
		r.file(f)
	}
}

func (r *Reclaimer) file(path string) {
	var size uint64
	info, err := r.fs.Lstat(path)
	if err != nil {
		return
	}
	if info.Size() > 0 {
		size = uint64(info.Size())
	}

	if r.opts.DryRun {
		r.recordFile(path, size)
		logger.Debug("Would remove file", "path", path, "bytes", size)
		return
	}

	r.caps.ClearReadOnly(path)
	if err := r.fs.Remove(path); err != nil {
		if schedErr := r.caps.ScheduleDeleteOnReboot(path); schedErr != nil {
			logger.Debug("File removal failed", "path", path, "error", err, "reboot_error", schedErr)
			return
		}
		r.recordFile(path, size)
		logger.Debug("Scheduled file for deletion on reboot", "path", path, "bytes", size)
		return
	}
	r.recordFile(path, size)
	logger.Debug("Removed file", "path", path, "bytes", size)
}

func (r *Reclaimer) recordFile(path string, size uint64) {
	r.stats.AddFiles(1)
	r.stats.AddBytes(size)
	r.stats.MarkCleaned(filepath.Dir(path))
}
