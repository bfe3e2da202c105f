package platform

import (
	"context"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
)

// Volume is one mounted filesystem and its space usage.
type Volume struct {
	Mountpoint string  `json:"mountpoint"`
	FSType     string  `json:"fstype"`
	Total      uint64  `json:"total_bytes"`
	Free       uint64  `json:"free_bytes"`
	UsedPct    float64 `json:"used_percent"`
}

// Volumes lists mounted physical volumes with their free space. Volumes
// whose usage cannot be read (empty card readers, disconnected network
// drives) are skipped.
func Volumes(ctx context.Context) ([]Volume, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	return volumesFrom(parts, func(mp string) (*disk.UsageStat, error) {
		return disk.UsageWithContext(ctx, mp)
	}), nil
}

func volumesFrom(parts []disk.PartitionStat, usage func(string) (*disk.UsageStat, error)) []Volume {
	seen := make(map[string]bool)
	var out []Volume
	for _, p := range parts {
		key := strings.ToUpper(p.Mountpoint)
		if p.Mountpoint == "" || seen[key] {
			continue
		}
		seen[key] = true

		u, err := usage(p.Mountpoint)
		if err != nil || u == nil || u.Total == 0 {
			continue
		}
		out = append(out, Volume{
			Mountpoint: p.Mountpoint,
			FSType:     p.Fstype,
			Total:      u.Total,
			Free:       u.Free,
			UsedPct:    u.UsedPercent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mountpoint < out[j].Mountpoint })
	return out
}
