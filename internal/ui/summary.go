package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lakshaymaurya-felt/winsweep/internal/stats"
)

// FastModeNote is shown after every real run in fast mode.
const FastModeNote = "Note: byte counts for directories are approximate (fast mode). Use --exact-stats for precise totals."

// FormatSize renders a byte count, e.g. "1.2 GB".
func FormatSize(bytes uint64) string {
	return humanize.Bytes(bytes)
}

// FreeSpace describes disk free space before and after a run.
type FreeSpace struct {
	Volume string
	Before uint64
	After  uint64
	Known  bool
}

// RenderSummary renders a run summary. With styled false the output is
// plain text suitable for pipes and log files.
func RenderSummary(s stats.Summary, free FreeSpace, listDirs, styled bool) string {
	title := "Summary"
	freedLabel := "Freed"
	if s.DryRun {
		title = "Dry-run summary"
		freedLabel = "Would free"
	}

	rows := [][2]string{
		{freedLabel, fmt.Sprintf("%s (%s bytes)", FormatSize(s.BytesFreed), humanize.Comma(int64(s.BytesFreed)))},
		{"Files", humanize.Comma(int64(s.FilesDeleted))},
		{"Directories", humanize.Comma(int64(s.DirsDeleted))},
		{"Links", humanize.Comma(int64(s.LinksRemoved))},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
		{"Run ID", s.RunID},
	}
	if free.Known && !s.DryRun {
		rows = append(rows, [2]string{
			"Free space",
			fmt.Sprintf("%s %s → %s", free.Volume, FormatSize(free.Before), FormatSize(free.After)),
		})
	}

	var b strings.Builder
	if styled {
		b.WriteString(TitleStyle.Render(IconDiamond+" "+title) + "\n")
		for _, r := range rows {
			b.WriteString(LabelStyle.Render(r[0]) + ValueStyle.Render(r[1]) + "\n")
		}
	} else {
		b.WriteString(title + "\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "  %-14s %s\n", r[0]+":", r[1])
		}
	}

	if listDirs && len(s.CleanedDirs) > 0 {
		b.WriteString("\n")
		for _, d := range s.CleanedDirs {
			line := "  " + IconFolder + " " + d
			if styled {
				line = DimStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	if !s.DryRun && !s.ExactStats {
		note := FastModeNote
		if styled {
			note = NoteStyle.Render(note)
		}
		b.WriteString("\n" + note + "\n")
	}

	out := b.String()
	if styled {
		return BoxStyle.Render(strings.TrimRight(out, "\n")) + "\n"
	}
	return out
}

// RenderTargets renders a preview listing.
func RenderTargets(dirs, files []string, styled bool) string {
	var b strings.Builder
	section := func(name string, items []string) {
		header := fmt.Sprintf("%s (%d)", name, len(items))
		if styled {
			header = TitleStyle.Render(header)
		}
		b.WriteString(header + "\n")
		for _, it := range items {
			fmt.Fprintf(&b, "  %s %s\n", IconBullet, it)
		}
	}
	section("Directories", dirs)
	b.WriteString("\n")
	section("Files", files)
	return b.String()
}
