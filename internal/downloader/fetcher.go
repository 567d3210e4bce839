package downloader

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"walldo/pkg/errors"
	"walldo/pkg/events"
	"walldo/pkg/logger"
	"walldo/pkg/models"
	"walldo/pkg/ratelimit"
	"walldo/pkg/stats"
	"walldo/pkg/storage"
)

// ImageSource opens full-size image bodies
type ImageSource interface {
	OpenImage(ctx context.Context, link string) (io.ReadCloser, error)
}

// ImageStorage persists image bodies under a file name
type ImageStorage interface {
	Exists(fileName string) bool
	Save(r io.Reader, fileName string) (string, error)
}

// ImageFetcher downloads single images into storage and accounts them
// in the run's stats
type ImageFetcher struct {
	source   ImageSource
	storage  ImageStorage
	run      *stats.RunStats
	limiter  ratelimit.Limiter
	observer events.Observer
	logger   logger.Logger
}

// NewImageFetcher creates a fetcher. A nil limiter, observer or logger is
// replaced by a no-op equivalent.
func NewImageFetcher(
	source ImageSource,
	store ImageStorage,
	run *stats.RunStats,
	limiter ratelimit.Limiter,
	observer events.Observer,
	log logger.Logger,
) *ImageFetcher {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &ImageFetcher{
		source:   source,
		storage:  store,
		run:      run,
		limiter:  limiter,
		observer: events.OrNop(observer),
		logger:   log,
	}
}

// Fetch downloads link as {name}_{segment}. See FetchImage.
func (f *ImageFetcher) Fetch(ctx context.Context, link, name string) (*models.DownloadRecord, error) {
	return f.FetchImage(ctx, models.ImageLink{Name: name, URL: link})
}

// FetchImage downloads one image. A file that already exists, or that
// another task of the run is downloading or has recorded, is skipped and
// (nil, nil) is returned without touching any counter.
// Failures are returned as *errors.ImageDownloadError.
func (f *ImageFetcher) FetchImage(ctx context.Context, image models.ImageLink) (*models.DownloadRecord, error) {
	start := time.Now()
	name, link := image.Name, image.URL
	fileName := image.FileName
	if fileName == "" {
		fileName = storage.FileName(name, link)
	}

	if f.storage.Exists(fileName) || !f.run.Claim(fileName) {
		return nil, f.skip(image)
	}

	record, err := f.download(ctx, image, fileName)
	if err != nil {
		f.run.Release(fileName)
		if stderrors.Is(err, stats.ErrDuplicate) {
			return nil, f.skip(image)
		}
		return nil, f.fail(image, err)
	}

	logger.LogImage(f.logger.WithField("duration", time.Since(start)), name, link, record.Size, nil)
	f.observer.ImageDone(*record)

	return record, nil
}

// download writes the image body to fileName and accounts it
func (f *ImageFetcher) download(ctx context.Context, image models.ImageLink, fileName string) (*models.DownloadRecord, error) {
	link := image.URL

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &errors.ImageDownloadError{Link: link, Type: errors.ErrorTypeRateLimit, Err: err}
	}

	body, err := f.source.OpenImage(ctx, link)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	tracked := &readTracker{r: body}
	path, err := f.storage.Save(tracked, fileName)
	if err != nil {
		errType := errors.ErrorTypeFilesystem
		if tracked.err != nil {
			errType = errors.ErrorTypeNetwork
		}
		return nil, &errors.ImageDownloadError{Link: link, Type: errType, Err: err}
	}

	size, err := f.run.RecordDownload(path, fileName, link)
	if stderrors.Is(err, stats.ErrDuplicate) {
		return nil, err
	}
	if err != nil {
		return nil, &errors.ImageDownloadError{Link: link, Type: errors.ErrorTypeFilesystem, Err: err}
	}

	return &models.DownloadRecord{
		Name:     image.Name,
		Link:     link,
		FileName: fileName,
		Path:     path,
		Size:     size,
	}, nil
}

func (f *ImageFetcher) skip(image models.ImageLink) error {
	logger.LogImage(f.logger, image.Name, image.URL, -1, nil)
	f.observer.ImageSkipped(image)
	return nil
}

func (f *ImageFetcher) fail(image models.ImageLink, err error) error {
	var imageErr *errors.ImageDownloadError
	if !stderrors.As(err, &imageErr) {
		err = &errors.ImageDownloadError{Link: image.URL, Type: errors.ErrorTypeUnknown, Err: err}
	}

	f.logger.WithError(err).WarnWithFields("Image download failed", map[string]interface{}{
		"name": image.Name,
		"link": image.URL,
		"type": errors.Label(err),
	})
	f.observer.ImageFailed(image, err)
	return err
}

// readTracker remembers the first non-EOF read error so storage failures
// can be told apart from network ones
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
