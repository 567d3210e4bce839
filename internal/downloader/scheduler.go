package downloader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"walldo/pkg/events"
	"walldo/pkg/gallery"
	"walldo/pkg/logger"
	"walldo/pkg/models"
	"walldo/pkg/stats"
)

// LinkSource produces cursors over gallery pages
type LinkSource interface {
	Links(query *models.SearchQuery, start, stop, step int) *gallery.Cursor
}

// Fetcher downloads one image
type Fetcher interface {
	FetchImage(ctx context.Context, image models.ImageLink) (*models.DownloadRecord, error)
}

// RoundResult summarises one dispatched round
type RoundResult struct {
	LinksSeen   int
	Batches     int
	PagesFailed int
}

// Scheduler dispatches the links of one run in batches. Each batch runs
// in its own goroutine and downloads its links one after another; every
// batch of a round is joined before the round returns. A Scheduler
// belongs to a single run.
type Scheduler struct {
	source   LinkSource
	fetcher  Fetcher
	run      *stats.RunStats
	observer events.Observer
	logger   logger.Logger
	runID    string

	// set once a page of this run has been fetched and checked
	galleryChecked bool
}

// NewScheduler creates a scheduler for the run identified by runID
func NewScheduler(
	source LinkSource,
	fetcher Fetcher,
	run *stats.RunStats,
	observer events.Observer,
	log logger.Logger,
	runID string,
) *Scheduler {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Scheduler{
		source:   source,
		fetcher:  fetcher,
		run:      run,
		observer: events.OrNop(observer),
		logger:   log,
		runID:    runID,
	}
}

// RunRound downloads the links of one gallery page. Pulling stops once the
// links taken this round cover what the run still needs to reach quota;
// links already batched are still dispatched. The first page of the run
// that is fetched successfully must contain a gallery; otherwise the round
// returns errors.ErrSearchReturnedNone.
func (s *Scheduler) RunRound(ctx context.Context, query *models.SearchQuery, page, batchSize, quota int) (RoundResult, error) {
	need := quota - s.run.Downloaded()

	cursor := s.source.Links(query, page, gallery.NoStop, 1).
		OnPage(func(int, int) {
			s.run.AddPage()
			s.galleryChecked = true
		})
	if !s.galleryChecked {
		cursor.WithFirstPage()
	}

	d := s.newDispatch(ctx, batchSize)
	for d.seen < need && cursor.Next(ctx) {
		d.add(cursor.Link())
	}
	result := d.wait()
	result.PagesFailed = cursor.PagesFailed()

	s.logger.DebugWithFields("Round finished", map[string]interface{}{
		"page":         page,
		"links":        result.LinksSeen,
		"batches":      result.Batches,
		"pages_failed": result.PagesFailed,
	})
	s.observer.RoundFinished(events.Round{
		RunID:     s.runID,
		Page:      page,
		LinksSeen: result.LinksSeen,
		Batches:   result.Batches,
		Progress:  s.run.Snapshot(),
	})

	return result, cursor.Err()
}

// RunLinks downloads a fixed set of links using the same batching as a
// round, without touching the gallery
func (s *Scheduler) RunLinks(ctx context.Context, links []models.ImageLink, batchSize int) RoundResult {
	d := s.newDispatch(ctx, batchSize)
	for _, link := range links {
		d.add(link)
	}
	return d.wait()
}

// dispatch groups links into batches and launches one goroutine per batch
type dispatch struct {
	s         *Scheduler
	ctx       context.Context
	group     errgroup.Group
	batchSize int
	batch     []models.ImageLink
	seen      int
	batches   int
}

func (s *Scheduler) newDispatch(ctx context.Context, batchSize int) *dispatch {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &dispatch{
		s:         s,
		ctx:       ctx,
		batchSize: batchSize,
		batch:     make([]models.ImageLink, 0, batchSize),
	}
}

func (d *dispatch) add(link models.ImageLink) {
	d.batch = append(d.batch, link)
	d.seen++
	if len(d.batch) == d.batchSize {
		d.flush()
	}
}

func (d *dispatch) flush() {
	if len(d.batch) == 0 {
		return
	}
	batch := d.batch
	d.batch = make([]models.ImageLink, 0, d.batchSize)
	d.batches++

	d.group.Go(func() error {
		d.s.runBatch(d.ctx, batch)
		return nil
	})
}

// wait dispatches any partial batch and joins every batch goroutine
func (d *dispatch) wait() RoundResult {
	d.flush()
	_ = d.group.Wait()
	return RoundResult{LinksSeen: d.seen, Batches: d.batches}
}

// runBatch downloads the links of one batch sequentially. Failures are
// already logged and reported by the fetcher and do not stop the batch.
func (s *Scheduler) runBatch(ctx context.Context, batch []models.ImageLink) {
	for _, link := range batch {
		_, _ = s.fetcher.FetchImage(ctx, link)
	}
}
