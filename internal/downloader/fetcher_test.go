package downloader

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walldo/internal/gallerytest"
	"walldo/pkg/errors"
	"walldo/pkg/logger"
	"walldo/pkg/models"
	"walldo/pkg/ratelimit"
	"walldo/pkg/stats"
	"walldo/pkg/storage"
)

func newTestFetcher(t *testing.T, g *gallerytest.Server, limiter ratelimit.Limiter, obs *countingObserver) (*ImageFetcher, *stats.RunStats, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir, 0)
	require.NoError(t, err)

	run := stats.NewRunStats()
	return NewImageFetcher(g.Client(), store, run, limiter, asObserver(obs), logger.NewNopLogger()), run, dir
}

func TestFetchIsIdempotent(t *testing.T) {
	g := gallerytest.New(t, nil)
	obs := &countingObserver{}
	fetcher, run, dir := newTestFetcher(t, g, nil, obs)

	record, err := fetcher.Fetch(context.Background(), g.ImageURL(120), "Spiderman")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Spiderman_120.jpg", record.FileName)
	assert.Equal(t, filepath.Join(dir, "Spiderman_120.jpg"), record.Path)
	assert.Equal(t, int64(120), record.Size)

	record, err = fetcher.Fetch(context.Background(), g.ImageURL(120), "Spiderman")
	assert.NoError(t, err)
	assert.Nil(t, record)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	snap := run.Snapshot()
	assert.Equal(t, 1, snap.ImagesDownloaded)
	assert.Equal(t, int64(120), snap.BytesDownloaded)
	assert.Equal(t, int32(1), g.ImageHits.Load())
	assert.Len(t, obs.done, 1)
	assert.Equal(t, 1, obs.skipped)
}

func TestFetchSameNameDifferentAssets(t *testing.T) {
	g := gallerytest.New(t, nil)
	fetcher, run, dir := newTestFetcher(t, g, nil, nil)

	_, err := fetcher.Fetch(context.Background(), g.ImageURL(101), "Spiderman")
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), g.ImageURL(205), "Spiderman")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "Spiderman_101.jpg"))
	assert.FileExists(t, filepath.Join(dir, "Spiderman_205.jpg"))
	assert.Equal(t, 2, run.Downloaded())
	assert.Equal(t, map[string]string{
		"Spiderman_101.jpg": g.ImageURL(101),
		"Spiderman_205.jpg": g.ImageURL(205),
	}, run.Links())
}

func TestFetchImagePinnedFileName(t *testing.T) {
	g := gallerytest.New(t, nil)
	fetcher, run, dir := newTestFetcher(t, g, nil, nil)

	record, err := fetcher.FetchImage(context.Background(), models.ImageLink{
		Name:     "Spiderman",
		URL:      g.ImageURL(101),
		FileName: "Spiderman_101.jpg",
	})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Spiderman_101.jpg", record.FileName)
	assert.FileExists(t, filepath.Join(dir, "Spiderman_101.jpg"))
	assert.Equal(t, map[string]string{"Spiderman_101.jpg": g.ImageURL(101)}, run.Links())
}

func TestFetchSkipsFileRecordedByAnotherTask(t *testing.T) {
	g := gallerytest.New(t, nil)
	obs := &countingObserver{}
	fetcher, run, dir := newTestFetcher(t, g, nil, obs)

	// Another task of the run is mid-download
	require.True(t, run.Claim("Spiderman_120.jpg"))

	record, err := fetcher.Fetch(context.Background(), g.ImageURL(120), "Spiderman")
	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 1, obs.skipped)
	assert.Equal(t, int32(0), g.ImageHits.Load())
	assert.Equal(t, 0, run.Downloaded())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchNotFound(t *testing.T) {
	g := gallerytest.New(t, nil)
	g.SetMissing(404)
	obs := &countingObserver{}
	fetcher, run, dir := newTestFetcher(t, g, nil, obs)

	record, err := fetcher.Fetch(context.Background(), g.ImageURL(404), "Gone")
	assert.Nil(t, record)

	var imageErr *errors.ImageDownloadError
	require.True(t, stderrors.As(err, &imageErr))
	assert.Equal(t, errors.ErrorTypeNotFound, imageErr.Type)
	assert.Equal(t, 404, imageErr.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, run.Downloaded())
	assert.Equal(t, 1, obs.failed)
	assert.True(t, run.Claim("Gone_404.jpg"), "failed downloads give up their claim")
}

func TestFetchWaitsForLimiter(t *testing.T) {
	g := gallerytest.New(t, nil)
	limiter := ratelimit.NewTokenBucket(1, time.Hour)
	fetcher, run, _ := newTestFetcher(t, g, limiter, nil)

	_, err := fetcher.Fetch(context.Background(), g.ImageURL(10), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = fetcher.Fetch(ctx, g.ImageURL(11), "b")

	var imageErr *errors.ImageDownloadError
	require.True(t, stderrors.As(err, &imageErr))
	assert.Equal(t, errors.ErrorTypeRateLimit, imageErr.Type)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, run.Downloaded())
	assert.Equal(t, int32(1), g.ImageHits.Load())
}
