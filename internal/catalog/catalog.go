// Package catalog turns the enabled cache categories into candidate
// directory and file targets rooted at OS-reported locations.
//
// The catalog performs read-only, one-level directory scans only. Whether a
// candidate exists, is of the right kind or lies under an allowed prefix is
// decided later by the safety filter.
package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
)

// Category names used to label entries.
const (
	CatWindowsTemp          = "windows_temp"
	CatUserTemp             = "user_temp"
	CatBrowserCache         = "browser_cache"
	CatWindowsUpdate        = "windows_update"
	CatDeliveryOptimization = "delivery_optimization"
	CatCrashDumps           = "crash_dumps"
	CatErrorReports         = "error_reports"
	CatThumbnails           = "thumbnails"
	CatDirectXCache         = "directx_cache"
	CatTempInternetFiles    = "temp_internet_files"
	CatPrefetch             = "prefetch"
	CatDefenderCache        = "defender_cache"
	CatOfficeCache          = "office_cache"
	CatAspNetTemp           = "aspnet_temp"
	CatTeamsCache           = "teams_cache"
	CatModernAppsCache      = "modern_apps_cache"
	CatJavaCache            = "java_cache"
	CatAdobeCache           = "adobe_cache"
	CatWMPCache             = "wmp_cache"
	CatWidgetsCache         = "widgets_cache"
)

// Entry is a single target together with the category that produced it.
type Entry struct {
	Path     string `json:"path"`
	Category string `json:"category"`
}

// Catalog is the raw, unfiltered output of Build.
type Catalog struct {
	Dirs  []Entry
	Files []Entry
}

// DirPaths returns the directory targets as plain paths.
func (c Catalog) DirPaths() []string { return paths(c.Dirs) }

// FilePaths returns the file targets as plain paths.
func (c Catalog) FilePaths() []string { return paths(c.Files) }

func paths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

// Build returns the directory and file targets for cats. System-wide roots
// (WINDIR, SystemRoot, ProgramData) contribute only when allowSystem is set.
func Build(cats config.Categories, allowSystem bool) (dirs, files []string) {
	c := BuildCatalog(cats, allowSystem)
	return c.DirPaths(), c.FilePaths()
}

// BuildCatalog is Build with per-entry category labels.
func BuildCatalog(cats config.Categories, allowSystem bool) Catalog {
	b := &builder{}
	b.userDirs(cats)
	if allowSystem {
		b.systemDirs(cats)
	}
	if cats.BrowserCache {
		b.browserDirs()
	}
	if cats.ModernAppsCache {
		b.packageDirs()
	}
	if cats.Thumbnails {
		b.thumbnailFiles()
	}
	if allowSystem && cats.CrashDumps {
		if windir := config.WinDir(); windir != "" {
			b.file(CatCrashDumps, filepath.Join(windir, "MEMORY.DMP"))
		}
	}
	return b.cat
}

type builder struct {
	cat Catalog
}

func (b *builder) dir(category string, base string, elems ...string) {
	if base == "" {
		return
	}
	b.cat.Dirs = append(b.cat.Dirs, Entry{
		Path:     filepath.Join(append([]string{base}, elems...)...),
		Category: category,
	})
}

func (b *builder) file(category, path string) {
	b.cat.Files = append(b.cat.Files, Entry{Path: path, Category: category})
}

// ─── Per-User Locations ──────────────────────────────────────────────────────

func (b *builder) userDirs(cats config.Categories) {
	local := config.LocalAppData()
	roaming := config.AppData()

	if cats.UserTemp {
		b.dir(CatUserTemp, config.UserTemp())
		b.dir(CatUserTemp, local, "Temp")
	}
	if cats.DirectXCache {
		b.dir(CatDirectXCache, local, "D3DSCache")
		b.dir(CatDirectXCache, local, "NVIDIA", "GLCache")
		b.dir(CatDirectXCache, local, "NVIDIA", "DXCache")
	}
	if cats.TempInternetFiles {
		b.dir(CatTempInternetFiles, local, "Microsoft", "Windows", "INetCache")
		b.dir(CatTempInternetFiles, local, "Microsoft", "Windows", "WebCache")
	}
	if cats.CrashDumps {
		b.dir(CatCrashDumps, local, "CrashDumps")
	}
	if cats.ErrorReports {
		for _, sub := range werSubdirs {
			b.dir(CatErrorReports, local, "Microsoft", "Windows", "WER", sub)
		}
	}
	if cats.WidgetsCache {
		b.dir(CatWidgetsCache, local, "Packages", widgetsPackage, "LocalCache")
		b.dir(CatWidgetsCache, local, "Packages", widgetsPackage, "TempState")
	}
	if cats.TeamsCache {
		b.dir(CatTeamsCache, local, "Packages", teamsPackage, "LocalCache")
		for _, sub := range classicTeamsSubdirs {
			b.dir(CatTeamsCache, roaming, "Microsoft", "Teams", sub)
		}
	}
	if cats.OfficeCache {
		b.dir(CatOfficeCache, local, "Microsoft", "Office", "16.0", "OfficeFileCache")
	}
	if cats.WMPCache {
		b.dir(CatWMPCache, local, "Microsoft", "Media Player", "Cache")
	}
	if cats.JavaCache {
		b.dir(CatJavaCache, local, "Sun", "Java", "Deployment", "cache")
	}
	if cats.AdobeCache {
		b.dir(CatAdobeCache, local, "Adobe", "Common", "Media Cache")
		b.dir(CatAdobeCache, local, "Adobe", "Common", "Media Cache Files")
	}
}

const (
	widgetsPackage = "MicrosoftWindows.Client.WebExperience_cw5n1h2txyewy"
	teamsPackage   = "MSTeams_8wekyb3d8bbwe"
)

var werSubdirs = []string{"ReportQueue", "ReportArchive", "Temp"}

var classicTeamsSubdirs = []string{
	"Cache",
	"GPUCache",
	filepath.Join("Service Worker", "CacheStorage"),
	"IndexedDB",
	"Local Storage",
}

// ─── System-Wide Locations ───────────────────────────────────────────────────

func (b *builder) systemDirs(cats config.Categories) {
	if windir := config.WinDir(); windir != "" {
		if cats.WindowsTemp {
			b.dir(CatWindowsTemp, windir, "Temp")
		}
		if cats.Prefetch {
			b.dir(CatPrefetch, windir, "Prefetch")
		}
		if cats.WindowsUpdate {
			b.dir(CatWindowsUpdate, windir, "SoftwareDistribution", "Download")
		}
		if cats.CrashDumps {
			b.dir(CatCrashDumps, windir, "Minidump")
			b.dir(CatCrashDumps, windir, "LiveKernelReports")
		}
		if cats.AspNetTemp {
			b.dir(CatAspNetTemp, windir, "Microsoft.NET", "Framework", "v4.0.30319", "Temporary ASP.NET Files")
			b.dir(CatAspNetTemp, windir, "Microsoft.NET", "Framework64", "v4.0.30319", "Temporary ASP.NET Files")
		}
	}

	if root := config.SystemRoot(); root != "" {
		if cats.WindowsTemp {
			b.dir(CatWindowsTemp, root, "Temp")
		}
		if cats.WindowsUpdate {
			b.dir(CatWindowsUpdate, root, "SoftwareDistribution", "Download")
		}
	}

	if pd := config.ProgramData(); pd != "" {
		if cats.DeliveryOptimization {
			b.dir(CatDeliveryOptimization, pd, "Microsoft", "Windows", "DeliveryOptimization", "Cache")
		}
		if cats.ErrorReports {
			for _, sub := range werSubdirs {
				b.dir(CatErrorReports, pd, "Microsoft", "Windows", "WER", sub)
			}
		}
		if cats.DefenderCache {
			b.dir(CatDefenderCache, pd, "Microsoft", "Windows Defender", "Scans", "History")
		}
	}
}

// ─── Dynamic Enumerations ────────────────────────────────────────────────────

// chromiumProducts are product roots under %LOCALAPPDATA% that keep
// profiles in a "User Data" directory.
var chromiumProducts = [][]string{
	{"Google", "Chrome"},
	{"Microsoft", "Edge"},
	{"BraveSoftware", "Brave-Browser"},
	{"Vivaldi", "Vivaldi"},
	{"Opera Software", "Opera GX Stable"},
	{"Opera Software", "Opera Stable"},
}

var chromiumProfileCaches = []string{
	"Cache",
	"Code Cache",
	"GPUCache",
	"ShaderCache",
	"DawnCache",
	"GrShaderCache",
	"Media Cache",
	filepath.Join("Service Worker", "CacheStorage"),
	"Application Cache",
	filepath.Join("Network", "Cache"),
}

func (b *builder) browserDirs() {
	local := config.LocalAppData()
	if local == "" {
		return
	}

	for _, product := range chromiumProducts {
		userData := filepath.Join(append([]string{local}, product...)...)
		userData = filepath.Join(userData, "User Data")
		for _, profile := range subdirs(userData) {
			for _, sub := range chromiumProfileCaches {
				b.dir(CatBrowserCache, profile, sub)
			}
		}
		if isDir(userData) {
			b.dir(CatBrowserCache, userData, "ShaderCache", "GPUCache")
		}
	}

	for _, profile := range subdirs(filepath.Join(local, "Mozilla", "Firefox", "Profiles")) {
		b.dir(CatBrowserCache, profile, "cache2")
		b.dir(CatBrowserCache, profile, "startupCache")
	}
}

func (b *builder) packageDirs() {
	local := config.LocalAppData()
	if local == "" {
		return
	}
	for _, pkg := range subdirs(filepath.Join(local, "Packages")) {
		b.dir(CatModernAppsCache, pkg, "LocalCache")
		b.dir(CatModernAppsCache, pkg, "TempState")
	}
}

// thumbnailFiles matches every thumbcache*/iconcache* entry in the Explorer
// directory, not only *.db, so side files such as thumbcache_idx are caught.
func (b *builder) thumbnailFiles() {
	local := config.LocalAppData()
	if local == "" {
		return
	}
	explorer := ExplorerDir(local)
	entries, err := os.ReadDir(explorer)
	if err != nil {
		return
	}
	for _, e := range entries {
		if IsThumbnailName(e.Name()) {
			b.file(CatThumbnails, filepath.Join(explorer, e.Name()))
		}
	}
}

// ExplorerDir returns the directory holding the shell's thumbnail and icon
// caches for the given local app-data root.
func ExplorerDir(localAppData string) string {
	return filepath.Join(localAppData, "Microsoft", "Windows", "Explorer")
}

// IsThumbnailName reports whether a file name looks like a shell thumbnail
// or icon cache.
func IsThumbnailName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "thumbcache") || strings.HasPrefix(lower, "iconcache")
}

// ThumbnailTargets reports whether any file target lives in the shell's
// cache directory, which means the shell must be stopped to release locks.
func ThumbnailTargets(files []string) bool {
	marker := strings.ToLower(filepath.Join("microsoft", "windows", "explorer"))
	for _, f := range files {
		if strings.Contains(strings.ToLower(f), marker) {
			return true
		}
	}
	return false
}

// subdirs lists the immediate subdirectories of dir. Unreadable or missing
// directories yield nothing.
func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
