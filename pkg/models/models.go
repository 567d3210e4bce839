package models

import "sync"

// SearchQuery is the keyword a run searches for plus the collection
// identifier the site may substitute for it
type SearchQuery struct {
	Keyword string

	mu       sync.RWMutex
	override string
}

// NewSearchQuery creates a query for keyword with no override
func NewSearchQuery(keyword string) *SearchQuery {
	return &SearchQuery{Keyword: keyword}
}

// Override returns the served query override, if one was observed
func (q *SearchQuery) Override() (string, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.override, q.override != ""
}

// SetOverride records the served query override. The first non-empty value
// wins for the lifetime of the run; later calls return false.
func (q *SearchQuery) SetOverride(override string) bool {
	if override == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.override != "" {
		return false
	}
	q.override = override
	return true
}

// Reset clears the override so the next run re-discovers it
func (q *SearchQuery) Reset() {
	q.mu.Lock()
	q.override = ""
	q.mu.Unlock()
}

// ImageLink is one image discovered on a gallery page
type ImageLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`

	// FileName pins the on-disk name. When empty it is derived from Name
	// and the last segment of URL.
	FileName string `json:"file_name,omitempty"`
}

// DownloadRecord describes an image durably written to disk
type DownloadRecord struct {
	Name     string `json:"name"`
	Link     string `json:"link"`
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}
