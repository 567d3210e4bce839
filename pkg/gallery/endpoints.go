package gallery

import (
	"fmt"
	"net/url"
	"strings"

	"walldo/pkg/models"
)

// Gallery endpoints
const (
	BaseURL        = "https://wall.alphacoders.com"
	SearchEndpoint = "/search.php"

	// DefaultUserAgent is sent with every page and image request
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/72.0.3626.28 Safari/537.36"
)

// SearchURL builds the keyword search URL for the given page
func SearchURL(baseURL, keyword string, page int) string {
	return fmt.Sprintf("%s%s?search=%s&page=%d",
		strings.TrimRight(baseURL, "/"), SearchEndpoint, url.QueryEscape(keyword), page)
}

// OverrideURL appends the page parameter to a served query override
func OverrideURL(override string, page int) string {
	sep := "&"
	if !strings.Contains(override, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%spage=%d", override, sep, page)
}

// PageURL returns the URL of page for query, preferring the served override
func PageURL(baseURL string, query *models.SearchQuery, page int) string {
	if override, ok := query.Override(); ok {
		return OverrideURL(override, page)
	}
	return SearchURL(baseURL, query.Keyword, page)
}
