package gallery

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"walldo/pkg/models"
)

func TestSearchURL(t *testing.T) {
	tests := []struct {
		name     string
		keyword  string
		page     int
		expected string
	}{
		{
			name:     "simple keyword",
			keyword:  "ironman",
			page:     1,
			expected: BaseURL + "/search.php?search=ironman&page=1",
		},
		{
			name:     "keyword with spaces",
			keyword:  "iron man",
			page:     3,
			expected: BaseURL + "/search.php?search=iron+man&page=3",
		},
		{
			name:     "keyword with reserved characters",
			keyword:  "a&b=c",
			page:     2,
			expected: BaseURL + "/search.php?search=a%26b%3Dc&page=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SearchURL(BaseURL, tt.keyword, tt.page)
			assert.Equal(t, tt.expected, result)

			u, err := url.Parse(result)
			assert.NoError(t, err)
			assert.Equal(t, tt.keyword, u.Query().Get("search"))
		})
	}
}

func TestSearchURLTrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "http://gallery.test/search.php?search=x&page=1", SearchURL("http://gallery.test/", "x", 1))
}

func TestOverrideURL(t *testing.T) {
	assert.Equal(t, "http://gallery.test/by_collection.php?id=42&page=2",
		OverrideURL("http://gallery.test/by_collection.php?id=42", 2))
	assert.Equal(t, "http://gallery.test/tags/ironman?page=5",
		OverrideURL("http://gallery.test/tags/ironman", 5))
}

func TestPageURLPrefersOverride(t *testing.T) {
	q := models.NewSearchQuery("ironman")
	assert.Equal(t, "http://gallery.test/search.php?search=ironman&page=4", PageURL("http://gallery.test", q, 4))

	q.SetOverride("http://gallery.test/by_collection.php?id=42")
	assert.Equal(t, "http://gallery.test/by_collection.php?id=42&page=4", PageURL("http://gallery.test", q, 4))
}
