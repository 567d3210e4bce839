package downloader

import (
	"sync"

	"walldo/pkg/events"
	"walldo/pkg/models"
)

// countingObserver records callbacks; image callbacks arrive concurrently
type countingObserver struct {
	mu      sync.Mutex
	done    []models.DownloadRecord
	skipped int
	failed  int
	rounds  int
}

func (o *countingObserver) ImageDone(r models.DownloadRecord) {
	o.mu.Lock()
	o.done = append(o.done, r)
	o.mu.Unlock()
}

func (o *countingObserver) ImageSkipped(models.ImageLink) {
	o.mu.Lock()
	o.skipped++
	o.mu.Unlock()
}

func (o *countingObserver) ImageFailed(models.ImageLink, error) {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
}

func (o *countingObserver) RoundFinished(events.Round) {
	o.mu.Lock()
	o.rounds++
	o.mu.Unlock()
}

func (o *countingObserver) RunFinished(events.Run) {}

// asObserver avoids handing a typed nil to code that checks for a nil observer
func asObserver(obs *countingObserver) events.Observer {
	if obs == nil {
		return nil
	}
	return obs
}
