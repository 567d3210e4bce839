// Package events defines the optional progress hooks the download engine
// invokes. The engine behaves the same with or without an observer.
package events

import (
	"walldo/pkg/models"
	"walldo/pkg/stats"
)

// Observer receives progress callbacks. Image callbacks may be invoked
// concurrently from several batch goroutines.
type Observer interface {
	// ImageDone is called after an image was written and counted
	ImageDone(record models.DownloadRecord)
	// ImageSkipped is called when the target file already existed
	ImageSkipped(link models.ImageLink)
	// ImageFailed is called when an image could not be downloaded or written
	ImageFailed(link models.ImageLink, err error)
	// RoundFinished is called after every batch of a round has been joined
	RoundFinished(round Round)
	// RunFinished is called once per run after stats have been folded
	RunFinished(run Run)
}

// Round describes one completed page round
type Round struct {
	RunID     string
	Page      int
	LinksSeen int
	Batches   int
	Progress  stats.Snapshot
}

// Run describes a finished run
type Run struct {
	RunID   string
	Keyword string
	Wanted  int
	Stats   stats.Snapshot
	Session stats.Snapshot
	Err     error
}

// NopObserver ignores every callback
type NopObserver struct{}

func (NopObserver) ImageDone(models.DownloadRecord) {}
func (NopObserver) ImageSkipped(models.ImageLink) {}
func (NopObserver) ImageFailed(models.ImageLink, error) {}
func (NopObserver) RoundFinished(Round) {}
func (NopObserver) RunFinished(Run) {}

// Multi fans callbacks out to several observers in order
type Multi []Observer

// NewMulti drops nil observers and returns a fan-out observer
func NewMulti(observers ...Observer) Multi {
	m := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m Multi) ImageDone(record models.DownloadRecord) {
	for _, o := range m {
		o.ImageDone(record)
	}
}

func (m Multi) ImageSkipped(link models.ImageLink) {
	for _, o := range m {
		o.ImageSkipped(link)
	}
}

func (m Multi) ImageFailed(link models.ImageLink, err error) {
	for _, o := range m {
		o.ImageFailed(link, err)
	}
}

func (m Multi) RoundFinished(round Round) {
	for _, o := range m {
		o.RoundFinished(round)
	}
}

func (m Multi) RunFinished(run Run) {
	for _, o := range m {
		o.RunFinished(run)
	}
}

// OrNop returns o, or a NopObserver when o is nil
func OrNop(o Observer) Observer {
	if o == nil {
		return NopObserver{}
	}
	return o
}
