package gallery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"walldo/pkg/config"
	"walldo/pkg/errors"
	"walldo/pkg/logger"
	"walldo/pkg/models"
)

// Client talks to the wallpaper gallery. It is safe for concurrent use;
// headers are fixed at construction and only read afterwards.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a gallery client for the public site
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	// Use default logger if none provided
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		baseURL: BaseURL,
		logger:  log,
	}
}

// NewClientWithConfig creates a client using the site section of the configuration
func NewClientWithConfig(site *config.SiteConfig, timeout time.Duration, log logger.Logger) *Client {
	client := NewClient(timeout, log)
	if site == nil {
		return client
	}
	if site.BaseURL != "" {
		client.baseURL = site.BaseURL
	}
	if site.UserAgent != "" {
		client.headers["User-Agent"] = site.UserAgent
	}
	return client
}

// SetHeader sets a custom header. Call it before the client is shared.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// BaseURL returns the gallery root the client searches
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)

	return resp, nil
}

// get performs a GET request bound to ctx
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	return c.doRequest(req)
}

// checkResponseStatus converts a non-2xx response into a typed error
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &errors.Error{
		Type:    errors.TypeForStatus(resp.StatusCode),
		Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		Code:    resp.StatusCode,
	}
}

// FetchPage downloads one gallery page and extracts its image links.
// Failures are returned as *errors.PageFetchError.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]models.ImageLink, *PageInfo, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, nil, pageError(pageURL, err)
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp); err != nil {
		return nil, nil, pageError(pageURL, err)
	}

	links, info, err := ParsePage(resp.Body, pageURL)
	if err != nil {
		return nil, nil, &errors.PageFetchError{
			URL:  pageURL,
			Type: errors.ErrorTypeParsing,
			Code: resp.StatusCode,
			Err:  err,
		}
	}

	c.logger.DebugWithFields("parsed gallery page", map[string]interface{}{
		"url":         pageURL,
		"links":       len(links),
		"has_gallery": info.HasGallery,
	})

	return links, info, nil
}

// OpenImage starts the download of a full-size image. The caller must
// close the returned body. Failures are returned as *errors.ImageDownloadError.
func (c *Client) OpenImage(ctx context.Context, link string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, link)
	if err != nil {
		return nil, imageError(link, err)
	}

	if err := checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, imageError(link, err)
	}

	return resp.Body, nil
}

// PingResult reports how the gallery answered a ping
type PingResult struct {
	URL     string
	Status  int
	Latency time.Duration
}

// Ping requests the gallery root and measures the round trip. Transport
// and status failures are both returned as *errors.Error naming the URL;
// a result is returned whenever the gallery answered.
func (c *Client) Ping(ctx context.Context) (*PingResult, error) {
	start := time.Now()
	resp, err := c.get(ctx, c.baseURL)
	if err != nil {
		return nil, pingError(c.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &PingResult{
		URL:     c.baseURL,
		Status:  resp.StatusCode,
		Latency: time.Since(start),
	}
	if err := checkResponseStatus(resp); err != nil {
		return result, pingError(c.baseURL, err)
	}
	return result, nil
}

func pingError(target string, err error) *errors.Error {
	pe := &errors.Error{Type: errors.ErrorTypeNetwork, Message: fmt.Sprintf("ping %s: %v", target, err)}
	if typed, ok := err.(*errors.Error); ok {
		pe.Type = typed.Type
		pe.Code = typed.Code
		pe.Message = fmt.Sprintf("ping %s: %s", target, typed.Message)
	}
	return pe
}

func pageError(pageURL string, err error) *errors.PageFetchError {
	pe := &errors.PageFetchError{URL: pageURL, Type: errors.ErrorTypeNetwork, Err: err}
	if typed, ok := err.(*errors.Error); ok {
		pe.Type = typed.Type
		pe.Code = typed.Code
	}
	return pe
}

func imageError(link string, err error) *errors.ImageDownloadError {
	ie := &errors.ImageDownloadError{Link: link, Type: errors.ErrorTypeNetwork, Err: err}
	if typed, ok := err.(*errors.Error); ok {
		ie.Type = typed.Type
		ie.Code = typed.Code
	}
	return ie
}
