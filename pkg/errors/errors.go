package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeFilesystem  ErrorType = "filesystem"
	ErrorTypeUnknown     ErrorType = "unknown"
)

var (
	// ErrInvalidDownloadNum is returned when the requested image count is not positive.
	ErrInvalidDownloadNum = stderrors.New("number of images to download must be positive")

	// ErrSearchReturnedNone is returned when the keyword resolves to no gallery at all.
	ErrSearchReturnedNone = stderrors.New("search returned no gallery")

	// ErrMaxRetriesCrossed matches any *MaxRetriesCrossed via errors.Is.
	ErrMaxRetriesCrossed = stderrors.New("maximum retries crossed")
)

// Error represents a typed HTTP or filesystem error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// PageFetchError is returned when one gallery page cannot be fetched or parsed.
// It is transient: the page contributes no links and the run goes on.
type PageFetchError struct {
	Page int
	URL  string
	Type ErrorType
	Code int
	Err  error
}

func (e *PageFetchError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("unable to fetch page %d (%s, status %d): %v", e.Page, e.Type, e.Code, e.Err)
	}
	return fmt.Sprintf("unable to fetch page %d (%s): %v", e.Page, e.Type, e.Err)
}

func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// ImageDownloadError is returned when a single image cannot be downloaded or written.
type ImageDownloadError struct {
	Link string
	Type ErrorType
	Code int
	Err  error
}

func (e *ImageDownloadError) Error() string {
	return fmt.Sprintf("error while downloading image %s (%s): %v", e.Link, e.Type, e.Err)
}

func (e *ImageDownloadError) Unwrap() error {
	return e.Err
}

// MaxRetriesCrossed reports a run that spent its retry budget short of quota.
// Images already written stay on disk.
type MaxRetriesCrossed struct {
	Wanted  int
	Got     int
	Retries int
}

func (e *MaxRetriesCrossed) Error() string {
	return fmt.Sprintf("maximum retries (%d) crossed: downloaded %d of %d images", e.Retries, e.Got, e.Wanted)
}

// Is makes errors.Is(err, ErrMaxRetriesCrossed) work for every instance
func (e *MaxRetriesCrossed) Is(target error) bool {
	return target == ErrMaxRetriesCrossed
}

// TypeForStatus maps an HTTP status code to an error type
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusForbidden:
		return ErrorTypeForbidden
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsTransient reports whether err is a page or image failure that the
// run is expected to survive
func IsTransient(err error) bool {
	var pageErr *PageFetchError
	var imageErr *ImageDownloadError
	return stderrors.As(err, &pageErr) || stderrors.As(err, &imageErr)
}

// Label returns a short category name for metrics and log fields
func Label(err error) string {
	if err == nil {
		return "none"
	}
	var pageErr *PageFetchError
	if stderrors.As(err, &pageErr) {
		return string(pageErr.Type)
	}
	var imageErr *ImageDownloadError
	if stderrors.As(err, &imageErr) {
		return string(imageErr.Type)
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return string(typed.Type)
	}
	switch {
	case stderrors.Is(err, ErrSearchReturnedNone):
		return "search_returned_none"
	case stderrors.Is(err, ErrInvalidDownloadNum):
		return "invalid_download_num"
	case stderrors.Is(err, ErrMaxRetriesCrossed):
		return "max_retries_crossed"
	}
	return string(ErrorTypeUnknown)
}
