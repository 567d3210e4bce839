package session

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walldo/internal/gallerytest"
	"walldo/pkg/config"
	"walldo/pkg/errors"
	"walldo/pkg/events"
	"walldo/pkg/logger"
)

// runRecorder keeps every RunFinished event
type runRecorder struct {
	events.NopObserver
	mu   sync.Mutex
	runs []events.Run
}

func (r *runRecorder) RunFinished(run events.Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
}

func newTestController(t *testing.T, g *gallerytest.Server, obs events.Observer) *Controller {
	t.Helper()
	cfg := config.DefaultConfig()
	ctrl, err := New(g.Client(), cfg, obs, logger.NewNopLogger())
	require.NoError(t, err)
	return ctrl
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestStartDownloadSingleRound(t *testing.T) {
	g := gallerytest.New(t, map[int][]int{1: gallerytest.IDs(100, 20)})
	rec := &runRecorder{}
	ctrl := newTestController(t, g, rec)
	dir := filepath.Join(t.TempDir(), "ironman")

	snap, err := ctrl.StartDownload(context.Background(), Request{
		Keyword:    "ironman",
		NumImages:  12,
		TargetDir:  dir,
		MaxRetries: 5,
		BatchSize:  5,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, snap.ImagesDownloaded)
	assert.Equal(t, 1, snap.PagesVisited)
	assert.Equal(t, gallerytest.Bytes(gallerytest.IDs(100, 12)), snap.BytesDownloaded)
	assert.True(t, snap.Elapsed > 0)
	assert.Equal(t, int32(1), g.PageHits.Load())
	assert.Equal(t, int32(12), g.ImageHits.Load())
	assert.Equal(t, 12, countFiles(t, dir))

	assert.Len(t, ctrl.LastLinks(), snap.ImagesDownloaded)
	assert.Equal(t, *snap, ctrl.LastRun())

	require.Len(t, rec.runs, 1)
	assert.NoError(t, rec.runs[0].Err)
	assert.Equal(t, "ironman", rec.runs[0].Keyword)
	assert.NotEmpty(t, rec.runs[0].RunID)
}

func TestStartDownloadRetryBudgetSpent(t *testing.T) {
	// Five links per page, only the last two of each exist
	pages := make(map[int][]int)
	for p := 1; p <= 6; p++ {
		pages[p] = gallerytest.IDs(p*100, 5)
	}
	g := gallerytest.New(t, pages)
	for p := 1; p <= 6; p++ {
		g.SetMissing(gallerytest.IDs(p*100, 3)...)
	}
	ctrl := newTestController(t, g, nil)
	dir := t.TempDir()

	snap, err := ctrl.StartDownload(context.Background(), Request{
		Keyword:    "ironman",
		NumImages:  10,
		TargetDir:  dir,
		MaxRetries: 5,
		BatchSize:  5,
	})

	assert.ErrorIs(t, err, errors.ErrMaxRetriesCrossed)
	var crossed *errors.MaxRetriesCrossed
	require.True(t, stderrors.As(err, &crossed))
	assert.Equal(t, 10, crossed.Wanted)
	assert.Equal(t, 7, crossed.Got)
	assert.Equal(t, 5, crossed.Retries)

	require.NotNil(t, snap)
	assert.Equal(t, 7, snap.ImagesDownloaded)
	assert.Equal(t, 5, snap.PagesVisited)
	assert.Equal(t, 7, countFiles(t, dir))
}

func TestStartDownloadSearchReturnedNone(t *testing.T) {
	g := gallerytest.New(t, nil)
	g.NoGallery.Store(true)
	rec := &runRecorder{}
	ctrl := newTestController(t, g, rec)
	dir := t.TempDir()

	snap, err := ctrl.StartDownload(context.Background(), Request{
		Keyword:   "zzz-no-such-thing",
		NumImages: 10,
		TargetDir: dir,
	})

	assert.ErrorIs(t, err, errors.ErrSearchReturnedNone)
	require.NotNil(t, snap)
	assert.Zero(t, snap.ImagesDownloaded)
	assert.Equal(t, int32(1), g.PageHits.Load())
	assert.Equal(t, int32(0), g.ImageHits.Load())
	assert.Zero(t, countFiles(t, dir))

	require.Len(t, rec.runs, 1)
	assert.ErrorIs(t, rec.runs[0].Err, errors.ErrSearchReturnedNone)
}

func TestStartDownloadRejectsInvalidCount(t *testing.T) {
	g := gallerytest.New(t, nil)
	ctrl := newTestController(t, g, nil)

	for _, n := range []int{0, -3} {
		dir := filepath.Join(t.TempDir(), "never-created")
		snap, err := ctrl.StartDownload(context.Background(), Request{Keyword: "ironman", NumImages: n, TargetDir: dir})

		assert.ErrorIs(t, err, errors.ErrInvalidDownloadNum)
		assert.Nil(t, snap)
		assert.NoDirExists(t, dir)
	}
	assert.Equal(t, int32(0), g.PageHits.Load())
	assert.Zero(t, ctrl.Runs())
}

func TestStartDownloadUnusableTargetDir(t *testing.T) {
	g := gallerytest.New(t, nil)
	ctrl := newTestController(t, g, nil)

	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := ctrl.StartDownload(context.Background(), Request{
		Keyword:   "ironman",
		NumImages: 1,
		TargetDir: filepath.Join(file, "sub"),
	})
	assert.ErrorContains(t, err, "failed to prepare target directory")
	assert.Equal(t, int32(0), g.PageHits.Load())
}

func TestSessionStatsAccumulateAcrossRuns(t *testing.T) {
	g := gallerytest.New(t, map[int][]int{
		1: gallerytest.IDs(100, 20),
		2: gallerytest.IDs(200, 20),
	})
	ctrl := newTestController(t, g, nil)
	dir := t.TempDir()
	req := Request{Keyword: "ironman", NumImages: 12, TargetDir: dir, MaxRetries: 5, BatchSize: 5}

	first, err := ctrl.StartDownload(context.Background(), req)
	require.NoError(t, err)
	afterFirst := ctrl.SessionStats()

	// Page 1 is already on disk, so the second run moves on to page 2
	second, err := ctrl.StartDownload(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 12, second.ImagesDownloaded)
	assert.Equal(t, 2, second.PagesVisited)
	assert.Equal(t, 24, countFiles(t, dir))

	total := ctrl.SessionStats()
	assert.Equal(t, 2, ctrl.Runs())
	assert.Equal(t, first.ImagesDownloaded+second.ImagesDownloaded, total.ImagesDownloaded)
	assert.Equal(t, first.PagesVisited+second.PagesVisited, total.PagesVisited)
	assert.Equal(t, first.BytesDownloaded+second.BytesDownloaded, total.BytesDownloaded)
	assert.GreaterOrEqual(t, total.ImagesDownloaded, afterFirst.ImagesDownloaded)
	assert.True(t, total.Elapsed >= afterFirst.Elapsed)

	// Run stats start over while session totals keep growing
	assert.Equal(t, *second, ctrl.LastRun())
	assert.Len(t, ctrl.LastLinks(), 12)
}

func TestStartDownloadCancelledContext(t *testing.T) {
	g := gallerytest.New(t, map[int][]int{1: gallerytest.IDs(100, 5)})
	ctrl := newTestController(t, g, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := ctrl.StartDownload(ctx, Request{Keyword: "ironman", NumImages: 5, TargetDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, snap)
	assert.Zero(t, snap.ImagesDownloaded)
	assert.Equal(t, int32(0), g.PageHits.Load())
	assert.Equal(t, 1, ctrl.Runs())
}

func TestRedownload(t *testing.T) {
	g := gallerytest.New(t, map[int][]int{1: gallerytest.IDs(100, 6)})
	ctrl := newTestController(t, g, nil)

	_, err := ctrl.StartDownload(context.Background(), Request{Keyword: "ironman", NumImages: 6, TargetDir: t.TempDir()})
	require.NoError(t, err)
	records := ctrl.LastLinks()
	pageHits := g.PageHits.Load()

	dir := t.TempDir()
	snap, err := ctrl.Redownload(context.Background(), records, dir, 4)
	require.NoError(t, err)

	assert.Equal(t, 6, snap.ImagesDownloaded)
	assert.Zero(t, snap.PagesVisited)
	assert.Equal(t, 6, countFiles(t, dir))
	assert.Equal(t, pageHits, g.PageHits.Load())
	assert.Equal(t, 12, ctrl.SessionStats().ImagesDownloaded)

	// Everything is on disk now; a second import only skips
	again, err := ctrl.Redownload(context.Background(), records, dir, 4)
	require.NoError(t, err)
	assert.Zero(t, again.ImagesDownloaded)
	assert.Equal(t, 6, countFiles(t, dir))
}

func TestSameNameDifferentAssetsSurviveExport(t *testing.T) {
	g := gallerytest.New(t, map[int][]int{1: {101, 205}})
	g.SetName("Spiderman", 101, 205)
	ctrl := newTestController(t, g, nil)

	snap, err := ctrl.StartDownload(context.Background(), Request{Keyword: "spiderman", NumImages: 2, TargetDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ImagesDownloaded)

	records := ctrl.LastLinks()
	assert.Equal(t, map[string]string{
		"Spiderman_101.jpg": g.ImageURL(101),
		"Spiderman_205.jpg": g.ImageURL(205),
	}, records)

	dir := t.TempDir()
	again, err := ctrl.Redownload(context.Background(), records, dir, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ImagesDownloaded)
	assert.FileExists(t, filepath.Join(dir, "Spiderman_101.jpg"))
	assert.FileExists(t, filepath.Join(dir, "Spiderman_205.jpg"))
	assert.Equal(t, records, ctrl.LastLinks())
}

func TestStartDownloadRediscoversServedQueryEachRun(t *testing.T) {
	g := gallerytest.New(t, map[int][]int{1: gallerytest.IDs(100, 5), 2: gallerytest.IDs(200, 5)})
	g.SetDataURL("/search.php?collection=ironman-walls")
	ctrl := newTestController(t, g, nil)

	req := Request{Keyword: "ironman", NumImages: 8, MaxRetries: 5, BatchSize: 5}
	wantQueries := []string{"search=ironman&page=1", "collection=ironman-walls&page=2"}

	req.TargetDir = t.TempDir()
	snap, err := ctrl.StartDownload(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 8, snap.ImagesDownloaded)
	assert.Equal(t, 2, snap.PagesVisited)
	assert.Equal(t, wantQueries, g.Queries())

	served, ok := ctrl.ServedQuery()
	require.True(t, ok)
	assert.Equal(t, g.URL+"/search.php?collection=ironman-walls", served)

	// Same keyword again: page 1 goes back to the keyword search and the
	// override is picked up afresh for page 2
	req.TargetDir = t.TempDir()
	snap, err = ctrl.StartDownload(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 8, snap.ImagesDownloaded)
	assert.Equal(t, append(wantQueries, wantQueries...), g.Queries())

	served, ok = ctrl.ServedQuery()
	require.True(t, ok)
	assert.Equal(t, g.URL+"/search.php?collection=ironman-walls", served)
}
