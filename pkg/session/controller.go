package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"walldo/internal/downloader"
	"walldo/pkg/config"
	"walldo/pkg/errors"
	"walldo/pkg/events"
	"walldo/pkg/gallery"
	"walldo/pkg/logger"
	"walldo/pkg/models"
	"walldo/pkg/ratelimit"
	"walldo/pkg/stats"
	"walldo/pkg/storage"
)

// Request describes one download run. Zero MaxRetries and BatchSize fall
// back to the controller's defaults; NumImages has no default.
type Request struct {
	Keyword    string
	NumImages  int
	TargetDir  string
	MaxRetries int
	BatchSize  int
}

// Controller runs downloads one at a time and keeps the totals of every
// run it has executed. It owns the run's search query and stats.
type Controller struct {
	client   *gallery.Client
	limiter  ratelimit.Limiter
	observer events.Observer
	logger   logger.Logger
	defaults config.DownloadConfig

	mu        sync.Mutex
	query     *models.SearchQuery
	run       *stats.RunStats
	session   stats.SessionStats
	lastRun   stats.Snapshot
	lastRunID string
	lastLinks map[string]string
}

// New creates a controller from the download and rate limit sections of cfg
func New(client *gallery.Client, cfg *config.Config, observer events.Observer, log logger.Logger) (*Controller, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	limiter, err := ratelimit.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	return &Controller{
		client:   client,
		limiter:  limiter,
		observer: events.OrNop(observer),
		logger:   log,
		defaults: cfg.Download,
		run:      stats.NewRunStats(),
	}, nil
}

// StartDownload runs page rounds until req.NumImages images have been
// written or req.MaxRetries rounds were spent. Running short of quota
// returns *errors.MaxRetriesCrossed together with the run's stats; the
// images already written stay on disk. Cancelling ctx ends the run
// between rounds.
func (c *Controller) StartDownload(ctx context.Context, req Request) (*stats.Snapshot, error) {
	if req.NumImages <= 0 {
		return nil, errors.ErrInvalidDownloadNum
	}
	req = c.withDefaults(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := storage.NewManager(req.TargetDir, c.defaults.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare target directory: %w", err)
	}

	c.run.Reset()
	c.limiter.Reset()
	if c.query == nil || c.query.Keyword != req.Keyword {
		c.query = models.NewSearchQuery(req.Keyword)
	} else {
		c.query.Reset()
	}

	runID := uuid.NewString()
	log := c.logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"keyword": req.Keyword,
	})
	fetcher := downloader.NewImageFetcher(c.client, store, c.run, c.limiter, c.observer, log)
	scheduler := downloader.NewScheduler(c.client, fetcher, c.run, c.observer, log, runID)

	log.InfoWithFields("Starting download", map[string]interface{}{
		"wanted":      req.NumImages,
		"target_dir":  store.Dir(),
		"max_retries": req.MaxRetries,
		"batch_size":  req.BatchSize,
	})

	var runErr error
	page, retries := 0, 0
	for c.run.Downloaded() < req.NumImages && retries < req.MaxRetries {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		page++
		result, err := scheduler.RunRound(ctx, c.query, page, req.BatchSize, req.NumImages)
		retries++
		if err != nil {
			runErr = err
			break
		}

		logger.LogRunProgress(log, req.Keyword, retries, c.run.Downloaded(), req.NumImages)
		if result.LinksSeen == 0 {
			log.DebugWithFields("Page yielded no links", map[string]interface{}{"page": page})
		}
	}

	snap := c.finish(runID)
	if runErr == nil && snap.ImagesDownloaded < req.NumImages {
		runErr = &errors.MaxRetriesCrossed{
			Wanted:  req.NumImages,
			Got:     snap.ImagesDownloaded,
			Retries: retries,
		}
	}

	c.observer.RunFinished(events.Run{
		RunID:   runID,
		Keyword: req.Keyword,
		Wanted:  req.NumImages,
		Stats:   snap,
		Session: c.session.Snapshot(),
		Err:     runErr,
	})

	fields := map[string]interface{}{
		"images":  snap.ImagesDownloaded,
		"pages":   snap.PagesVisited,
		"bytes":   snap.BytesDownloaded,
		"elapsed": snap.Elapsed,
		"rounds":  retries,
	}
	switch {
	case runErr == nil:
		log.InfoWithFields("Download finished", fields)
	case stderrors.Is(runErr, errors.ErrMaxRetriesCrossed):
		log.WarnWithFields("Retry budget spent before quota was met", fields)
	default:
		log.WithError(runErr).ErrorWithFields("Download stopped", fields)
	}

	return &snap, runErr
}

// Redownload re-attempts a saved file name -> link map in batches without
// visiting any gallery page. The attempt is folded into the session
// totals like a run.
func (c *Controller) Redownload(ctx context.Context, records map[string]string, targetDir string, batchSize int) (*stats.Snapshot, error) {
	if batchSize <= 0 {
		batchSize = c.defaults.BatchSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := storage.NewManager(targetDir, c.defaults.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare target directory: %w", err)
	}

	c.run.Reset()
	c.limiter.Reset()

	runID := uuid.NewString()
	log := c.logger.WithFields(map[string]interface{}{
		"run_id": runID,
		"import": len(records),
	})
	fetcher := downloader.NewImageFetcher(c.client, store, c.run, c.limiter, c.observer, log)
	scheduler := downloader.NewScheduler(c.client, fetcher, c.run, c.observer, log, runID)

	// Sorted so repeated imports hit the server in the same order
	fileNames := make([]string, 0, len(records))
	for fileName := range records {
		fileNames = append(fileNames, fileName)
	}
	sort.Strings(fileNames)

	links := make([]models.ImageLink, 0, len(fileNames))
	for _, fileName := range fileNames {
		link := records[fileName]
		links = append(links, models.ImageLink{
			Name:     storage.DisplayName(fileName, link),
			URL:      link,
			FileName: fileName,
		})
	}

	result := scheduler.RunLinks(ctx, links, batchSize)
	snap := c.finish(runID)

	c.observer.RunFinished(events.Run{
		RunID:   runID,
		Wanted:  len(records),
		Stats:   snap,
		Session: c.session.Snapshot(),
		Err:     ctx.Err(),
	})
	log.InfoWithFields("Import finished", map[string]interface{}{
		"images":  snap.ImagesDownloaded,
		"batches": result.Batches,
		"elapsed": snap.Elapsed,
	})

	return &snap, ctx.Err()
}

// finish stamps the run's elapsed time and folds it into the session
func (c *Controller) finish(runID string) stats.Snapshot {
	snap := c.run.Finish()
	c.session.Fold(snap)
	c.lastRun = snap
	c.lastRunID = runID
	c.lastLinks = c.run.Links()
	return snap
}

func (c *Controller) withDefaults(req Request) Request {
	if req.MaxRetries <= 0 {
		req.MaxRetries = c.defaults.MaxRetries
	}
	if req.BatchSize <= 0 {
		req.BatchSize = c.defaults.BatchSize
	}
	if req.TargetDir == "" {
		req.TargetDir = "."
	}
	return req
}

// SessionStats returns the totals of every run this controller executed
func (c *Controller) SessionStats() stats.Snapshot {
	return c.session.Snapshot()
}

// Runs returns how many runs were folded into the session totals
func (c *Controller) Runs() int {
	return c.session.Runs()
}

// LastRun returns the stats of the most recent run
func (c *Controller) LastRun() stats.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

// LastRunID returns the id of the most recent run, as logged with it
func (c *Controller) LastRunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRunID
}

// LastLinks returns the file name -> link map of the most recent run
func (c *Controller) LastLinks() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	links := make(map[string]string, len(c.lastLinks))
	for k, v := range c.lastLinks {
		links[k] = v
	}
	return links
}

// ServedQuery returns the collection URL the gallery redirected the last
// search to, if any
func (c *Controller) ServedQuery() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.query == nil {
		return "", false
	}
	return c.query.Override()
}
