package stats

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// MiB is the divisor used when reporting byte counts
const MiB = 1024 * 1024

// ErrDuplicate is returned by RecordDownload for a file name the run has
// already accounted
var ErrDuplicate = errors.New("file already recorded in this run")

// Snapshot is a point-in-time copy of run or session counters
type Snapshot struct {
	PagesVisited     int           `json:"pages_visited"`
	ImagesDownloaded int           `json:"images_downloaded"`
	BytesDownloaded  int64         `json:"bytes_downloaded"`
	Elapsed          time.Duration `json:"elapsed"`
}

// MegaBytes returns BytesDownloaded expressed in MiB
func (s Snapshot) MegaBytes() float64 {
	return float64(s.BytesDownloaded) / MiB
}

func (s Snapshot) String() string {
	return fmt.Sprintf("pages=%d images=%d size=%.2fMiB elapsed=%s",
		s.PagesVisited, s.ImagesDownloaded, s.MegaBytes(), s.Elapsed.Round(time.Millisecond))
}

// RunStats holds the counters and file name→link map shared by every
// download task of one run. All mutation happens under mu.
type RunStats struct {
	mu       sync.Mutex
	counters Snapshot
	links    map[string]string
	pending  map[string]struct{}
	started  time.Time
}

// NewRunStats creates an empty aggregator
func NewRunStats() *RunStats {
	return &RunStats{
		links:   make(map[string]string),
		pending: make(map[string]struct{}),
		started: time.Now(),
	}
}

// Reset clears all counters and the link map and restarts the clock
func (r *RunStats) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = Snapshot{}
	r.links = make(map[string]string)
	r.pending = make(map[string]struct{})
	r.started = time.Now()
}

// AddPage counts one successfully fetched gallery page
func (r *RunStats) AddPage() {
	r.mu.Lock()
	r.counters.PagesVisited++
	r.mu.Unlock()
}

// Claim reserves fileName for the calling task. It returns false when the
// file is already recorded or another task holds the claim.
// A claim ends with RecordDownload or Release.
func (r *RunStats) Claim(fileName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[fileName]; ok {
		return false
	}
	if _, ok := r.pending[fileName]; ok {
		return false
	}
	r.pending[fileName] = struct{}{}
	return true
}

// Release drops a claim whose download did not complete
func (r *RunStats) Release(fileName string) {
	r.mu.Lock()
	delete(r.pending, fileName)
	r.mu.Unlock()
}

// RecordDownload stats the file at path and, in the same critical section,
// adds its size, bumps the download count and records fileName→link.
// A fileName already recorded leaves the counters alone and returns
// ErrDuplicate. It returns the size that was accounted.
func (r *RunStats) RecordDownload(path, fileName, link string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, fileName)
	if _, ok := r.links[fileName]; ok {
		return 0, ErrDuplicate
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	r.counters.BytesDownloaded += info.Size()
	r.counters.ImagesDownloaded++
	r.links[fileName] = link

	return info.Size(), nil
}

// Downloaded returns the number of images recorded so far
func (r *RunStats) Downloaded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters.ImagesDownloaded
}

// Links returns a copy of the file name→link map
func (r *RunStats) Links() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.links))
	for k, v := range r.links {
		out[k] = v
	}
	return out
}

// Finish stamps the elapsed time and returns the final snapshot
func (r *RunStats) Finish() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters.Elapsed = time.Since(r.started)
	return r.counters
}

// Snapshot returns a copy of the current counters
func (r *RunStats) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.counters
	if snap.Elapsed == 0 {
		snap.Elapsed = time.Since(r.started)
	}
	return snap
}

// SessionStats accumulates finished runs for the lifetime of the process.
// It is never reset.
type SessionStats struct {
	mu     sync.Mutex
	totals Snapshot
	runs   int
}

// Fold adds a finished run's counters to the session totals
func (s *SessionStats) Fold(run Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.PagesVisited += run.PagesVisited
	s.totals.ImagesDownloaded += run.ImagesDownloaded
	s.totals.BytesDownloaded += run.BytesDownloaded
	s.totals.Elapsed += run.Elapsed
	s.runs++
}

// Snapshot returns the accumulated totals
func (s *SessionStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Runs returns how many runs have been folded in
func (s *SessionStats) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}
