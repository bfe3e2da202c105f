// Package safety decides which catalog targets may be touched at all.
//
// A target survives only if it exists as the expected kind, canonicalizes
// cleanly and lies under one of the allowed prefixes. Independently of the
// prefix check, sensitive system directories and filesystem roots are never
// accepted.
package safety

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/IGLOU-EU/go-wildcard"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
)

// Canonical resolves path to an absolute, symlink-free form. It fails if
// the path does not exist.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// key returns the comparison form of a canonical path. Windows paths compare
// case-insensitively.
func key(canonical string) string {
	canonical = filepath.Clean(canonical)
	if runtime.GOOS == "windows" {
		return strings.ToLower(canonical)
	}
	return canonical
}

// under reports whether child equals parent or lies beneath it, respecting
// component boundaries so C:\Temp2 is not under C:\Temp.
func under(child, parent string) bool {
	if child == parent {
		return true
	}
	if strings.HasSuffix(parent, string(filepath.Separator)) {
		return strings.HasPrefix(child, parent)
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

// AllowedPrefixes returns the canonical roots under which deletion is
// permitted: the user temp directory and the per-user app-data roots, plus
// WINDIR, SystemRoot and ProgramData when allowSystem is set. Only existing
// directories are returned, deduplicated.
func AllowedPrefixes(allowSystem bool) []string {
	bases := []string{config.UserTemp(), config.LocalAppData(), config.AppData()}
	if allowSystem {
		bases = append(bases, config.WinDir(), config.SystemRoot(), config.ProgramData())
	}

	seen := make(map[string]bool)
	var out []string
	for _, b := range bases {
		if b == "" || !isDir(b) {
			continue
		}
		c, err := Canonical(b)
		if err != nil {
			continue
		}
		if k := key(c); !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

// IsRoot reports whether path has no parent directory.
func IsRoot(path string) bool {
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == clean
}

// IsSensitive reports whether path is exactly one of the protected system
// directories. Children of those directories are not sensitive.
func IsSensitive(path string) bool {
	c, err := Canonical(path)
	if err != nil {
		c = filepath.Clean(path)
	}
	k := key(c)
	for _, s := range config.SensitiveDirs() {
		// Drive-letter defaults are relative paths on non-Windows hosts.
		if s == "" || !filepath.IsAbs(s) {
			continue
		}
		if sc, err := Canonical(s); err == nil {
			s = sc
		}
		if key(s) == k {
			return true
		}
	}
	return false
}

// Filter applies the containment rules for one run. The allowed prefix set
// is computed once at construction and read-only afterwards.
type Filter struct {
	prefixes []string // comparison keys
	exclude  []string
}

// NewFilter builds a filter for a run. Exclude holds wildcard patterns; a
// target matching any of them is dropped.
func NewFilter(allowSystem bool, exclude []string) *Filter {
	f := &Filter{}
	for _, p := range AllowedPrefixes(allowSystem) {
		f.prefixes = append(f.prefixes, key(p))
	}
	for _, pat := range exclude {
		if pat = strings.TrimSpace(pat); pat != "" {
			f.exclude = append(f.exclude, normalizePattern(pat))
		}
	}
	return f
}

func normalizePattern(p string) string {
	p = filepath.FromSlash(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
	}
	return p
}

// Prefixes returns the canonical comparison keys of the allowed roots.
func (f *Filter) Prefixes() []string {
	return append([]string(nil), f.prefixes...)
}

// Allowed reports whether the canonical form of path lies under an allowed
// prefix and matches no exclude pattern.
func (f *Filter) Allowed(path string) bool {
	c, err := Canonical(path)
	if err != nil {
		return false
	}
	return f.allowedKey(key(c), key(path))
}

func (f *Filter) allowedKey(canonicalKey, originalKey string) bool {
	contained := false
	for _, p := range f.prefixes {
		if under(canonicalKey, p) {
			contained = true
			break
		}
	}
	if !contained {
		return false
	}
	for _, pat := range f.exclude {
		if wildcard.Match(pat, canonicalKey) || wildcard.Match(pat, originalKey) {
			return false
		}
	}
	return true
}

// Dirs filters directory targets. Sensitive directories and roots are
// dropped here as well as at deletion time.
func (f *Filter) Dirs(paths []string) []string {
	return f.filter(paths, true)
}

// Files filters file targets.
func (f *Filter) Files(paths []string) []string {
	return f.filter(paths, false)
}

// filter keeps existing entries of the wanted kind that pass containment.
// The returned paths are the cleaned, absolute originals rather than their
// resolved forms, so a target that is itself a link is still seen as one by
// the reclaimer. Results are sorted and deduplicated by canonical key.
func (f *Filter) filter(paths []string, wantDir bool) []string {
	type kept struct {
		key  string
		path string
	}
	seen := make(map[string]bool)
	var out []kept

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() != wantDir {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		c, err := filepath.EvalSymlinks(abs)
		if err != nil {
			continue
		}
		k := key(c)
		if seen[k] || !f.allowedKey(k, key(abs)) {
			continue
		}
		if wantDir && (IsRoot(c) || IsSensitive(c)) {
			continue
		}
		seen[k] = true
		out = append(out, kept{key: k, path: filepath.Clean(abs)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	result := make([]string, len(out))
	for i, e := range out {
		result[i] = e.path
	}
	return result
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
