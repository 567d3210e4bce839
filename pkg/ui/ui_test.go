package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walldo/pkg/config"
	"walldo/pkg/errors"
	"walldo/pkg/events"
	"walldo/pkg/models"
	"walldo/pkg/stats"
)

type fakeSender struct {
	titles   []string
	messages []string
}

func (f *fakeSender) Send(title, message string) error {
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return stderrors.New("no desktop here")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	run := stats.Snapshot{PagesVisited: 2, ImagesDownloaded: 12, BytesDownloaded: 3 * stats.MiB, Elapsed: 1500 * time.Millisecond}
	session := stats.Snapshot{PagesVisited: 5, ImagesDownloaded: 30, BytesDownloaded: stats.MiB / 2, Elapsed: time.Minute}

	PrintSummary(&buf, run, session)

	out := buf.String()
	runPart, sessionPart, found := strings.Cut(out, "Session")
	require.True(t, found)
	assert.Contains(t, runPart, "12")
	assert.Contains(t, runPart, "3.00 MiB")
	assert.Contains(t, runPart, "1.5s")
	assert.Contains(t, sessionPart, "30")
	assert.Contains(t, sessionPart, "0.50 MiB")
	assert.Contains(t, sessionPart, "1m0s")
}

func TestProgressDisplayRoundLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "ironman", 10, false)

	p.ImageDone(models.DownloadRecord{Name: "Iron Man", Size: 2048})
	p.ImageSkipped(models.ImageLink{Name: "War Machine"})
	p.ImageFailed(models.ImageLink{Name: "Pepper"}, stderrors.New("404"))
	assert.Empty(t, buf.String(), "per-image output is live mode only")

	p.RoundFinished(events.Round{Page: 1, LinksSeen: 3, Batches: 1, Progress: stats.Snapshot{ImagesDownloaded: 1}})
	assert.Contains(t, buf.String(), "page 1: 3 links in 1 batches, 1/10 images")

	p.RunFinished(events.Run{Keyword: "ironman", Wanted: 10, Stats: stats.Snapshot{ImagesDownloaded: 1}})
	out := buf.String()
	assert.Contains(t, out, `Downloaded 1 of 10 images for "ironman"`)
	assert.Contains(t, out, "1 already on disk")
	assert.Contains(t, out, "1 downloads failed")
}

func TestProgressDisplayLive(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, "ironman", 4, true)

	p.ImageDone(models.DownloadRecord{Name: "Iron Man", Size: 1536})
	p.ImageDone(models.DownloadRecord{Name: "Hulkbuster", Size: 1024})

	out := buf.String()
	assert.Contains(t, out, "\r")
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "2.5 KB")
	assert.Contains(t, out, "Hulkbuster")

	buf.Reset()
	p.RoundFinished(events.Round{Page: 1})
	assert.Empty(t, buf.String())
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat(ProgressEmpty, barWidth)+"]", progressBar(0, 10))
	assert.Equal(t, "["+strings.Repeat(ProgressBar, barWidth/2)+strings.Repeat(ProgressEmpty, barWidth/2)+"]", progressBar(5, 10))
	assert.Equal(t, "["+strings.Repeat(ProgressBar, barWidth)+"]", progressBar(15, 10))
	assert.Equal(t, "["+strings.Repeat(ProgressEmpty, barWidth)+"]", progressBar(3, 0))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 MB", formatBytes(stats.MiB))
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}

func TestRunNotifier(t *testing.T) {
	cfg := config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true, NotificationType: "desktop"}

	tests := []struct {
		name      string
		run       events.Run
		wantTitle string
		wantMsg   string
	}{
		{
			name:      "complete",
			run:       events.Run{Keyword: "ironman", Stats: stats.Snapshot{ImagesDownloaded: 12, BytesDownloaded: stats.MiB}},
			wantTitle: "walldo: done",
			wantMsg:   `12 images for "ironman" (1.00 MiB)`,
		},
		{
			name:      "partial",
			run:       events.Run{Keyword: "ironman", Err: &errors.MaxRetriesCrossed{Wanted: 10, Got: 7, Retries: 5}},
			wantTitle: "walldo: partial",
			wantMsg:   `7 of 10 images for "ironman" after 5 rounds`,
		},
		{
			name:      "failed import",
			run:       events.Run{Err: errors.ErrSearchReturnedNone},
			wantTitle: "walldo: failed",
			wantMsg:   `"import"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sender := &fakeSender{}
			n := NewRunNotifierWith(NewNotifierWithSender(&buf, sender), cfg)

			n.RunFinished(tt.run)

			require.Len(t, sender.titles, 1)
			assert.Equal(t, tt.wantTitle, sender.titles[0])
			assert.Contains(t, sender.messages[0], tt.wantMsg)
			assert.Contains(t, buf.String(), tt.wantTitle)
		})
	}
}

func TestRunNotifierPreferences(t *testing.T) {
	sender := &fakeSender{}
	n := NewRunNotifierWith(NewNotifierWithSender(&bytes.Buffer{}, sender), config.NotificationConfig{Enabled: true})

	n.RunFinished(events.Run{Keyword: "ironman"})
	n.RunFinished(events.Run{Keyword: "ironman", Err: stderrors.New("boom")})
	assert.Empty(t, sender.titles)

	assert.Nil(t, NewRunNotifier(config.NotificationConfig{Enabled: false, NotificationType: "desktop"}))
	assert.Nil(t, NewRunNotifier(config.NotificationConfig{Enabled: true, NotificationType: "none"}))
	assert.NotNil(t, NewRunNotifier(config.NotificationConfig{Enabled: true, NotificationType: "terminal"}))
}
