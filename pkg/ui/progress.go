package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"walldo/pkg/events"
	"walldo/pkg/models"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
	barWidth      = 20
)

// ProgressDisplay renders the progress of one download run. In live mode
// it redraws a single status line on every image; otherwise it writes one
// line per finished round.
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	keyword    string
	wanted     int
	live       bool
	downloaded int
	skipped    int
	errors     int
	bytes      int64
	current    string
	startTime  time.Time
}

var _ events.Observer = (*ProgressDisplay)(nil)

// NewProgressDisplay creates a display for a run that wants the given
// number of images
func NewProgressDisplay(out io.Writer, keyword string, wanted int, live bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		keyword:   keyword,
		wanted:    wanted,
		live:      live,
		startTime: time.Now(),
	}
}

func (p *ProgressDisplay) ImageDone(record models.DownloadRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded++
	p.bytes += record.Size
	p.current = record.Name
	if p.live {
		p.printProgress()
	}
}

func (p *ProgressDisplay) ImageSkipped(models.ImageLink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped++
}

func (p *ProgressDisplay) ImageFailed(link models.ImageLink, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.errors++
	if p.live {
		p.printProgress()
	}
}

func (p *ProgressDisplay) RoundFinished(round events.Round) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live {
		return
	}
	fmt.Fprintf(p.out, "%s page %d: %d links in %d batches, %d/%d images\n",
		Magenta("→"),
		round.Page,
		round.LinksSeen,
		round.Batches,
		round.Progress.ImagesDownloaded,
		p.wanted,
	)
}

func (p *ProgressDisplay) RunFinished(run events.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.live {
		fmt.Fprintln(p.out)
	}

	mark := Green("✓")
	if run.Err != nil {
		mark = Yellow("⚠")
	}
	fmt.Fprintf(p.out, "%s Downloaded %d of %d images for %q in %s\n",
		mark, run.Stats.ImagesDownloaded, run.Wanted, p.keyword, formatDuration(run.Stats.Elapsed))
	if p.skipped > 0 {
		fmt.Fprintf(p.out, "  %s %d already on disk\n", Dim("•"), p.skipped)
	}
	if p.errors > 0 {
		fmt.Fprintf(p.out, "  %s %d downloads failed\n", Dim("•"), p.errors)
	}
}

// printProgress redraws the status line
func (p *ProgressDisplay) printProgress() {
	line := fmt.Sprintf("%s %s %d/%d • %.1f/min • %s",
		Cyan(p.keyword),
		progressBar(p.downloaded, p.wanted),
		p.downloaded,
		p.wanted,
		p.rate(),
		formatBytes(p.bytes),
	)
	if p.current != "" {
		line += fmt.Sprintf(" • %s", p.current)
	}
	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.errors)))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func (p *ProgressDisplay) rate() float64 {
	elapsed := time.Since(p.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(p.downloaded) / elapsed
}

// progressBar returns a fixed width bar; done beyond total renders full
func progressBar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled) + "]"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
