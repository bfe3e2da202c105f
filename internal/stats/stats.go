// Package stats accumulates the outcome of a reclamation run.
//
// The four counters are the hot path and use independent atomic adds; no
// ordering between them is implied. The cleaned-directory list is touched
// once per successful removal event and sits behind its own mutex.
package stats

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Aggregator is shared by every worker of a run.
type Aggregator struct {
	files atomic.Uint64
	dirs  atomic.Uint64
	links atomic.Uint64
	bytes atomic.Uint64

	mu      sync.Mutex
	cleaned []string
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// AddFiles records n removed files.
func (a *Aggregator) AddFiles(n uint64) { a.files.Add(n) }

// AddDirs records n removed directories.
func (a *Aggregator) AddDirs(n uint64) { a.dirs.Add(n) }

// AddLinks records n unlinked reparse points.
func (a *Aggregator) AddLinks(n uint64) { a.links.Add(n) }

// AddBytes records n freed bytes.
func (a *Aggregator) AddBytes(n uint64) { a.bytes.Add(n) }

// MarkCleaned records that content was removed from dir.
func (a *Aggregator) MarkCleaned(dir string) {
	a.mu.Lock()
	a.cleaned = append(a.cleaned, dir)
	a.mu.Unlock()
}

// Counters is a point-in-time copy of the four counters.
type Counters struct {
	FilesDeleted uint64 `json:"files_deleted"`
	DirsDeleted  uint64 `json:"dirs_deleted"`
	LinksRemoved uint64 `json:"links_removed"`
	BytesFreed   uint64 `json:"bytes_freed"`
}

// Counters reads the counters without draining anything.
func (a *Aggregator) Counters() Counters {
	return Counters{
		FilesDeleted: a.files.Load(),
		DirsDeleted:  a.dirs.Load(),
		LinksRemoved: a.links.Load(),
		BytesFreed:   a.bytes.Load(),
	}
}

// Summary is the result of one run.
type Summary struct {
	RunID string `json:"run_id"`
	Counters
	Elapsed     time.Duration `json:"elapsed_ns"`
	DryRun      bool          `json:"dry_run"`
	ExactStats  bool          `json:"exact_stats"`
	CleanedDirs []string      `json:"cleaned_dirs"`
}

// Snapshot finalizes the run. The cleaned list is drained, merged with
// every original directory target that no longer exists, then sorted and
// deduplicated.
func (a *Aggregator) Snapshot(runID string, originalDirs []string, elapsed time.Duration, dryRun, exact bool) Summary {
	a.mu.Lock()
	cleaned := a.cleaned
	a.cleaned = nil
	a.mu.Unlock()

	for _, d := range originalDirs {
		if _, err := os.Lstat(d); os.IsNotExist(err) {
			cleaned = append(cleaned, d)
		}
	}

	return Summary{
		RunID:       runID,
		Counters:    a.Counters(),
		Elapsed:     elapsed,
		DryRun:      dryRun,
		ExactStats:  exact,
		CleanedDirs: sortedUnique(cleaned),
	}
}

func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	if len(in) == 0 {
		return out
	}
	sorted := append([]string(nil), in...)
	sort.Strings(sorted)
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// IsZero reports whether nothing was counted and nothing was cleaned.
func (s Summary) IsZero() bool {
	return s.Counters == Counters{} && len(s.CleanedDirs) == 0
}

// HumanBytes formats BytesFreed, e.g. "1.2 GB".
func (s Summary) HumanBytes() string {
	return humanize.Bytes(s.BytesFreed)
}

// String renders a one-line summary for logs and plain output.
func (s Summary) String() string {
	verb := "Freed"
	if s.DryRun {
		verb = "Would free"
	}
	return fmt.Sprintf("%s %s: %s files, %s dirs, %s links in %s",
		verb,
		s.HumanBytes(),
		humanize.Comma(int64(s.FilesDeleted)),
		humanize.Comma(int64(s.DirsDeleted)),
		humanize.Comma(int64(s.LinksRemoved)),
		s.Elapsed.Round(time.Millisecond),
	)
}
