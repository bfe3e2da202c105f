package platform

import (
	"errors"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumesFrom(t *testing.T) {
	parts := []disk.PartitionStat{
		{Mountpoint: `D:`, Fstype: "NTFS"},
		{Mountpoint: `C:`, Fstype: "NTFS"},
		{Mountpoint: `c:`, Fstype: "NTFS"},
		{Mountpoint: `E:`, Fstype: "FAT32"},
		{Mountpoint: `F:`, Fstype: "UDF"},
		{Mountpoint: ""},
	}
	usage := func(mp string) (*disk.UsageStat, error) {
		switch mp {
		case `C:`:
			return &disk.UsageStat{Total: 100, Free: 40, UsedPercent: 60}, nil
		case `D:`:
			return &disk.UsageStat{Total: 200, Free: 150, UsedPercent: 25}, nil
		case `F:`:
			return &disk.UsageStat{}, nil
		default:
			return nil, errors.New("device not ready")
		}
	}

	got := volumesFrom(parts, usage)
	require.Len(t, got, 2)
	assert.Equal(t, Volume{Mountpoint: `C:`, FSType: "NTFS", Total: 100, Free: 40, UsedPct: 60}, got[0])
	assert.Equal(t, `D:`, got[1].Mountpoint)
}

func TestCurrentDescribes(t *testing.T) {
	p := Current()
	assert.NotEmpty(t, p.Describe(t.Context()))
	assert.Error(t, p.ScheduleDeleteOnReboot(""), "an empty path is never scheduled")
}

func TestSessionHelpersOffWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a non-Windows build")
	}
	assert.ErrorIs(t, RelaunchElevated([]string{"serve"}), ErrUnsupported)
	assert.False(t, OwnsConsole())
}
