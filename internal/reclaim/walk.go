package reclaim

import (
	"path/filepath"
)

// tally is the pre-computed content of a subtree, excluding its root.
type tally struct {
	files uint64
	dirs  uint64
	bytes uint64
}

// walk totals the subtree under root without following reparse points.
// Unreadable directories and entries that fail to stat are skipped.
func (r *Reclaimer) walk(root string) tally {
	var t tally
	stack := []string{root}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := r.fs.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			// Never follow junctions or symlinks.
			if r.caps.IsReparsePoint(p) {
				continue
			}
			if e.IsDir() {
				t.dirs++
				stack = append(stack, p)
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			t.files++
			if sz := info.Size(); sz > 0 {
				t.bytes += uint64(sz)
			}
		}
	}
	return t
}
