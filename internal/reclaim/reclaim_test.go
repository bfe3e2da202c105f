package reclaim

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
	"github.com/lakshaymaurya-felt/winsweep/internal/testutil"
)

// fakeCaps treats symlinks as reparse points and records reboot requests.
type fakeCaps struct {
	mu        sync.Mutex
	scheduled []string
	schedErr  error
}

func (c *fakeCaps) IsReparsePoint(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func (c *fakeCaps) ClearReadOnly(string) {}

func (c *fakeCaps) ScheduleDeleteOnReboot(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schedErr != nil {
		return c.schedErr
	}
	c.scheduled = append(c.scheduled, path)
	return nil
}

// faultyFS wraps the real filesystem and fails selected mutations.
type faultyFS struct {
	OSFS
	failRemoveAll map[string]bool
	failRemove    map[string]bool

	delay    time.Duration
	active   atomic.Int32
	maxSeen  atomic.Int32
	mutating atomic.Int32
}

func (f *faultyFS) RemoveAll(path string) error {
	f.mutating.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failRemoveAll[path] {
		return errors.New("access denied")
	}
	return f.OSFS.RemoveAll(path)
}

func (f *faultyFS) Remove(path string) error {
	f.mutating.Add(1)
	if f.failRemove[path] {
		return errors.New("sharing violation")
	}
	return f.OSFS.Remove(path)
}

// tree creates root with three files of 10, 20 and 30 bytes and an empty
// subdirectory.
func tree(fx *testutil.Fixture, root string) string {
	fx.WriteFile(filepath.Join(root, "a.tmp"), 10)
	fx.WriteFile(filepath.Join(root, "b.tmp"), 20)
	fx.WriteFile(filepath.Join(root, "nested", "c.tmp"), 30)
	fx.Mkdir(filepath.Join(root, "empty"))
	return root
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		override, cpus, want int
	}{
		{0, 4, 4},
		{0, 16, 8},
		{0, 0, 1},
		{2, 16, 2},
		{32, 16, 16},
		{-1, 4, 4},
		{1, 1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, workerCount(tt.override, tt.cpus), "override=%d cpus=%d", tt.override, tt.cpus)
	}
	assert.GreaterOrEqual(t, WorkerCount(0), 1)
}

func TestDirsExact(t *testing.T) {
	fx := testutil.NewFixture(t)
	root := tree(fx, filepath.Join(fx.Local, "Cache"))

	agg := stats.New()
	New(nil, &fakeCaps{}, agg, Options{Exact: true}).Dirs([]string{root})

	assert.False(t, testutil.Exists(root))
	assert.Equal(t, stats.Counters{FilesDeleted: 3, DirsDeleted: 3, BytesFreed: 60}, agg.Counters())
	assert.Equal(t, []string{root}, agg.Snapshot("", nil, 0, false, true).CleanedDirs)
}

func TestDirsFast(t *testing.T) {
	fx := testutil.NewFixture(t)
	root := tree(fx, filepath.Join(fx.Local, "Cache"))

	agg := stats.New()
	New(nil, &fakeCaps{}, agg, Options{}).Dirs([]string{root})

	assert.False(t, testutil.Exists(root))
	assert.Equal(t, stats.Counters{DirsDeleted: 1}, agg.Counters())
}

func TestDirsDryRunMutatesNothing(t *testing.T) {
	fx := testutil.NewFixture(t)
	root := tree(fx, filepath.Join(fx.Local, "Cache"))
	before := testutil.Snapshot(t, fx.Root)

	fsys := &faultyFS{}
	caps := &fakeCaps{}
	agg := stats.New()
	r := New(fsys, caps, agg, Options{DryRun: true})
	r.Dirs([]string{root})
	file := fx.WriteFile(filepath.Join(fx.Local, "thumbcache_16.db"), 7)
	before[file] = 7
	r.Files([]string{file})

	assert.Equal(t, before, testutil.Snapshot(t, fx.Root))
	assert.Zero(t, fsys.mutating.Load())
	assert.Empty(t, caps.scheduled)
	assert.Equal(t, stats.Counters{FilesDeleted: 4, DirsDeleted: 3, BytesFreed: 67}, agg.Counters())
}

func TestDirsSkipsMissingAndProtected(t *testing.T) {
	fx := testutil.NewFixture(t)
	file := fx.WriteFile(filepath.Join(fx.Local, "plain.txt"), 5)

	fsys := &faultyFS{}
	agg := stats.New()
	New(fsys, &fakeCaps{}, agg, Options{Exact: true}).Dirs([]string{
		filepath.Join(fx.Local, "missing"),
		file,
		fx.WinDir,
		string(filepath.Separator),
	})

	assert.Zero(t, fsys.mutating.Load())
	assert.True(t, agg.Snapshot("", nil, 0, false, true).IsZero())
	assert.True(t, testutil.Exists(fx.WinDir))
}

func TestDirsRespectsParallelismLimit(t *testing.T) {
	if runtime.NumCPU() < 2 {
		t.Skip("needs at least two CPUs")
	}
	fx := testutil.NewFixture(t)
	var targets []string
	for i := range 8 {
		targets = append(targets, fx.Mkdir(filepath.Join(fx.Local, "d", string(rune('a'+i)))))
	}

	fsys := &faultyFS{delay: 20 * time.Millisecond}
	agg := stats.New()
	New(fsys, &fakeCaps{}, agg, Options{MaxParallelism: 2}).Dirs(targets)

	assert.LessOrEqual(t, fsys.maxSeen.Load(), int32(2))
	assert.Equal(t, uint64(len(targets)), agg.Counters().DirsDeleted)
	for _, d := range targets {
		assert.False(t, testutil.Exists(d), d)
	}
}

func TestDirsShallowFallback(t *testing.T) {
	fx := testutil.NewFixture(t)
	root := tree(fx, filepath.Join(fx.Local, "Locked"))
	locked := fx.WriteFile(filepath.Join(root, "in-use.log"), 40)

	fsys := &faultyFS{
		failRemoveAll: map[string]bool{root: true},
		failRemove:    map[string]bool{locked: true},
	}
	agg := stats.New()
	New(fsys, &fakeCaps{}, agg, Options{Exact: true}).Dirs([]string{root})

	assert.True(t, testutil.Exists(root), "root stays behind")
	assert.True(t, testutil.Exists(locked))
	assert.False(t, testutil.Exists(filepath.Join(root, "a.tmp")))
	assert.False(t, testutil.Exists(filepath.Join(root, "nested")))
	assert.False(t, testutil.Exists(filepath.Join(root, "empty")))

	// a.tmp and b.tmp directly, nested/c.tmp through its subtree.
	assert.Equal(t, stats.Counters{FilesDeleted: 3, DirsDeleted: 2, BytesFreed: 60}, agg.Counters())

	cleaned := agg.Snapshot("", []string{root}, 0, false, true).CleanedDirs
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "nested"),
		filepath.Join(root, "empty"),
	}, cleaned)
}

func TestDirsShallowFallbackFast(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on Windows")
	}
	fx := testutil.NewFixture(t)
	outside := tree(fx, filepath.Join(fx.Root, "outside"))
	root := tree(fx, filepath.Join(fx.Local, "Locked"))
	link := filepath.Join(root, "lnk")
	require.NoError(t, os.Symlink(outside, link))

	fsys := &faultyFS{failRemoveAll: map[string]bool{root: true}}
	agg := stats.New()
	New(fsys, &fakeCaps{}, agg, Options{}).Dirs([]string{root})

	// Top-level files keep their sizes; nested and empty count as one
	// directory each with no bytes.
	assert.Equal(t, stats.Counters{FilesDeleted: 2, DirsDeleted: 2, LinksRemoved: 1, BytesFreed: 30}, agg.Counters())
	assert.False(t, testutil.Exists(link))
	assert.False(t, testutil.Exists(filepath.Join(root, "nested")))
	assert.True(t, testutil.Exists(filepath.Join(outside, "a.tmp")), "link target untouched")
	assert.True(t, testutil.Exists(filepath.Join(outside, "nested", "c.tmp")))
}

func TestDirsUnlinksReparsePoints(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on Windows")
	}
	fx := testutil.NewFixture(t)
	target := tree(fx, filepath.Join(fx.Root, "outside"))
	link := filepath.Join(fx.Local, "link")
	require.NoError(t, os.Symlink(target, link))

	agg := stats.New()
	New(nil, &fakeCaps{}, agg, Options{Exact: true}).Dirs([]string{link})

	assert.False(t, testutil.Exists(link))
	assert.True(t, testutil.Exists(filepath.Join(target, "a.tmp")), "link target untouched")
	assert.Equal(t, stats.Counters{LinksRemoved: 1}, agg.Counters())
}

func TestWalkDoesNotFollowLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on Windows")
	}
	fx := testutil.NewFixture(t)
	outside := tree(fx, filepath.Join(fx.Root, "outside"))
	root := fx.WriteFile(filepath.Join(fx.Local, "Cache", "own.tmp"), 5)
	require.NoError(t, os.Symlink(outside, filepath.Join(filepath.Dir(root), "junction")))

	r := New(nil, &fakeCaps{}, stats.New(), Options{})
	assert.Equal(t, tally{files: 1, bytes: 5}, r.walk(filepath.Dir(root)))
}

func TestFilesRebootFallback(t *testing.T) {
	fx := testutil.NewFixture(t)
	explorer := filepath.Join(fx.Local, "Explorer")
	free := fx.WriteFile(filepath.Join(explorer, "thumbcache_32.db"), 11)
	locked := fx.WriteFile(filepath.Join(explorer, "thumbcache_idx.db"), 13)
	stuck := fx.WriteFile(filepath.Join(explorer, "iconcache_16.db"), 17)

	fsys := &faultyFS{failRemove: map[string]bool{locked: true, stuck: true}}
	caps := &fakeCaps{}
	agg := stats.New()
	r := New(fsys, caps, agg, Options{})

	r.Files([]string{free, locked, filepath.Join(explorer, "missing.db")})
	assert.False(t, testutil.Exists(free))
	assert.True(t, testutil.Exists(locked))
	assert.Equal(t, []string{locked}, caps.scheduled)
	assert.Equal(t, stats.Counters{FilesDeleted: 2, BytesFreed: 24}, agg.Counters())

	caps.schedErr = errors.New("not supported")
	r.Files([]string{stuck})
	assert.Equal(t, stats.Counters{FilesDeleted: 2, BytesFreed: 24}, agg.Counters(), "unscheduled failures are not counted")

	assert.Equal(t, []string{explorer}, agg.Snapshot("", nil, 0, false, false).CleanedDirs)
}
