// Package engine runs one reclamation pass: build the catalog, filter it,
// remove directories concurrently, then remove files, then summarize.
//
// Run never fails and never cancels. Callers that need a deadline must
// impose it outside and let an abandoned run finish on its own.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lakshaymaurya-felt/winsweep/internal/catalog"
	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/logger"
	"github.com/lakshaymaurya-felt/winsweep/internal/platform"
	"github.com/lakshaymaurya-felt/winsweep/internal/reclaim"
	"github.com/lakshaymaurya-felt/winsweep/internal/safety"
	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
)

// Engine holds the collaborators of a run. The zero value is not usable;
// use New.
type Engine struct {
	Platform platform.Platform
	FS       reclaim.FS
}

// New returns an engine bound to the current OS and the real filesystem.
func New() *Engine {
	return &Engine{Platform: platform.Current(), FS: reclaim.OSFS{}}
}

// Preview lists the targets a run would consider, after filtering.
type Preview struct {
	TargetDirs  []string `json:"target_dirs"`
	TargetFiles []string `json:"target_files"`
}

// targets builds and filters the catalog for cfg and ov.
func targets(cfg config.RunConfig, ov config.Overrides) (dirs, files []string, thumbs bool) {
	cats := config.EffectiveCategories(cfg, ov)
	if cats.None() {
		return nil, nil, false
	}

	cat := catalog.BuildCatalog(cats, ov.AllowSystem)
	for _, e := range cat.Dirs {
		logger.Debug("Catalog directory", "category", e.Category, "path", e.Path)
	}

	filter := safety.NewFilter(ov.AllowSystem, cfg.Exclude)
	dirs = filter.Dirs(cat.DirPaths())
	files = filter.Files(cat.FilePaths())
	thumbs = cats.Thumbnails && catalog.ThumbnailTargets(files)
	return dirs, files, thumbs
}

// Preview runs the catalog and the filter only. Nothing is deleted.
func (e *Engine) Preview(cfg config.RunConfig, ov config.Overrides) Preview {
	dirs, files, _ := targets(cfg, ov)
	if dirs == nil {
		dirs = []string{}
	}
	if files == nil {
		files = []string{}
	}
	return Preview{TargetDirs: dirs, TargetFiles: files}
}

// Run performs one pass and always returns a Summary.
func (e *Engine) Run(cfg config.RunConfig, ov config.Overrides) stats.Summary {
	start := time.Now()
	runID := uuid.NewString()
	agg := stats.New()

	logger.Info("Run started", "run_id", runID, "dry_run", cfg.DryRun,
		"exact_stats", cfg.ExactStats, "allow_system", ov.AllowSystem)

	dirs, files, thumbs := targets(cfg, ov)

	r := reclaim.New(e.FS, e.Platform, agg, reclaim.Options{
		DryRun:         cfg.DryRun,
		Exact:          cfg.ExactStats,
		MaxParallelism: ov.MaxParallelism,
	})

	// Dirs returns only after every worker has joined, so the two phases
	// never overlap.
	r.Dirs(dirs)

	shellStopped := false
	if thumbs && !cfg.DryRun {
		shellStopped = e.Platform.StopShell(context.Background())
		if shellStopped {
			logger.Debug("Stopped desktop shell to release cache locks", "run_id", runID)
		}
	}

	r.Files(files)

	if shellStopped {
		e.Platform.StartShell(context.Background())
		logger.Debug("Restarted desktop shell", "run_id", runID)
	}

	summary := agg.Snapshot(runID, dirs, time.Since(start), cfg.DryRun, cfg.ExactStats)
	logger.Info("Run finished", "run_id", runID,
		"files", summary.FilesDeleted, "dirs", summary.DirsDeleted,
		"links", summary.LinksRemoved, "bytes", summary.BytesFreed,
		"elapsed", summary.Elapsed)
	return summary
}
