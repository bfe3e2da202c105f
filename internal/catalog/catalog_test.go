package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshaymaurya-felt/winsweep/internal/config"
	"github.com/lakshaymaurya-felt/winsweep/internal/testutil"
)

func only(mutate func(*config.Categories)) config.Categories {
	var c config.Categories
	mutate(&c)
	return c
}

func TestBuildEmptyCategories(t *testing.T) {
	testutil.NewFixture(t)

	dirs, files := Build(config.Categories{}, true)
	assert.Empty(t, dirs)
	assert.Empty(t, files)
}

func TestBuildUserTemp(t *testing.T) {
	fx := testutil.NewFixture(t)

	dirs, files := Build(only(func(c *config.Categories) { c.UserTemp = true }), false)
	assert.Equal(t, []string{fx.Temp, filepath.Join(fx.Local, "Temp")}, dirs)
	assert.Empty(t, files)
}

func TestBuildSystemRootsRequireAllowSystem(t *testing.T) {
	fx := testutil.NewFixture(t)
	cats := only(func(c *config.Categories) {
		c.WindowsTemp = true
		c.WindowsUpdate = true
		c.DefenderCache = true
	})

	dirs, _ := Build(cats, false)
	assert.Empty(t, dirs)

	dirs, _ = Build(cats, true)
	assert.Contains(t, dirs, filepath.Join(fx.WinDir, "Temp"))
	assert.Contains(t, dirs, filepath.Join(fx.WinDir, "SoftwareDistribution", "Download"))
	assert.Contains(t, dirs, filepath.Join(fx.ProgramData, "Microsoft", "Windows Defender", "Scans", "History"))
}

func TestBuildSkipsUnsetLocations(t *testing.T) {
	testutil.NewFixture(t)
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", "")

	dirs, files := Build(only(func(c *config.Categories) {
		c.DirectXCache = true
		c.TeamsCache = true
		c.BrowserCache = true
		c.Thumbnails = true
	}), false)
	assert.Empty(t, dirs)
	assert.Empty(t, files)
}

func TestBuildBrowserProfiles(t *testing.T) {
	fx := testutil.NewFixture(t)
	chrome := filepath.Join(fx.Local, "Google", "Chrome", "User Data")
	fx.Mkdir(filepath.Join(chrome, "Default"))
	fx.Mkdir(filepath.Join(chrome, "Profile 1"))
	fx.WriteFile(filepath.Join(chrome, "Local State"), 10)
	ffProfile := fx.Mkdir(filepath.Join(fx.Local, "Mozilla", "Firefox", "Profiles", "abcd.default"))

	c := BuildCatalog(only(func(c *config.Categories) { c.BrowserCache = true }), false)
	dirs := c.DirPaths()

	for _, profile := range []string{"Default", "Profile 1"} {
		for _, sub := range chromiumProfileCaches {
			assert.Contains(t, dirs, filepath.Join(chrome, profile, sub))
		}
	}
	assert.NotContains(t, dirs, filepath.Join(chrome, "Local State", "Cache"), "files are not profiles")
	assert.Contains(t, dirs, filepath.Join(chrome, "ShaderCache", "GPUCache"))
	assert.Contains(t, dirs, filepath.Join(ffProfile, "cache2"))
	assert.Contains(t, dirs, filepath.Join(ffProfile, "startupCache"))

	// Only Chrome and Firefox exist: 2 profiles * 10 + product-wide + 2.
	assert.Len(t, dirs, 2*len(chromiumProfileCaches)+1+2)
	for _, e := range c.Dirs {
		assert.Equal(t, CatBrowserCache, e.Category)
	}
}

func TestBuildModernAppPackages(t *testing.T) {
	fx := testutil.NewFixture(t)
	pkg := fx.Mkdir(filepath.Join(fx.Local, "Packages", "Contoso.App_1234"))

	dirs, _ := Build(only(func(c *config.Categories) { c.ModernAppsCache = true }), false)
	assert.Equal(t, []string{filepath.Join(pkg, "LocalCache"), filepath.Join(pkg, "TempState")}, dirs)
}

func TestBuildThumbnailFiles(t *testing.T) {
	fx := testutil.NewFixture(t)
	explorer := ExplorerDir(fx.Local)
	thumb := fx.WriteFile(filepath.Join(explorer, "thumbcache_256.db"), 4)
	icon := fx.WriteFile(filepath.Join(explorer, "IconCache_32.db"), 4)
	fx.WriteFile(filepath.Join(explorer, "ExplorerStartupLog.etl"), 4)

	_, files := Build(only(func(c *config.Categories) { c.Thumbnails = true }), false)
	assert.ElementsMatch(t, []string{thumb, icon}, files)
	assert.True(t, ThumbnailTargets(files))
}

func TestBuildMemoryDump(t *testing.T) {
	fx := testutil.NewFixture(t)
	cats := only(func(c *config.Categories) { c.CrashDumps = true })

	_, files := Build(cats, false)
	assert.Empty(t, files)

	_, files = Build(cats, true)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(fx.WinDir, "MEMORY.DMP"), files[0])
	assert.False(t, ThumbnailTargets(files))
}

func TestIsThumbnailName(t *testing.T) {
	assert.True(t, IsThumbnailName("thumbcache_idx.db"))
	assert.True(t, IsThumbnailName("THUMBCACHE_1024.db"))
	assert.True(t, IsThumbnailName("iconcache_wide.db"))
	assert.False(t, IsThumbnailName("my_thumbcache.db"))
	assert.False(t, IsThumbnailName("desktop.ini"))
}
