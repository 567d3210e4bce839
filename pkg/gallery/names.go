package gallery

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

// MaxNameLength is the longest display name, in characters, a link may carry
const MaxNameLength = 50

// boilerplateSuffixes are trailing phrases the site appends to alt text,
// longest first
var boilerplateSuffixes = []string{
	" HD Wallpaper | Background Image",
	" Wallpaper | Background Image",
	" HD Wallpaper",
	" Wallpaper",
}

// categoryPrefixes are stripped from the start of display names in this order
var categoryPrefixes = []string{
	"Movie ",
	"TV Show ",
	"Comics ",
	"Video Game ",
	"Video ",
	"Anime ",
}

var thumbnailMarker = regexp.MustCompile(`thumb(?:big)?-(?:\d+-)?`)

// CategoryPrefixes returns a copy of the prefix priority list
func CategoryPrefixes() []string {
	return append([]string(nil), categoryPrefixes...)
}

// DisplayName turns image alt text into a filesystem-safe display name
func DisplayName(alt string) string {
	name := strings.TrimSpace(alt)
	for _, suffix := range boilerplateSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	name = truncate(strings.TrimSpace(name), MaxNameLength)

	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range categoryPrefixes {
			if strings.HasPrefix(name, prefix) {
				name = strings.TrimSpace(strings.TrimPrefix(name, prefix))
				stripped = true
				break
			}
		}
	}

	return sanitize(name)
}

// FullSizeURL removes the thumbnail marker from an image src
func FullSizeURL(src string) string {
	dir, file := path.Split(src)
	return dir + thumbnailMarker.ReplaceAllString(file, "")
}

// AssetID returns the trailing path segment of link without its extension
func AssetID(link string) string {
	segment := LastSegment(link)
	return strings.TrimSuffix(segment, path.Ext(segment))
}

// LastSegment returns the final path element of link, ignoring any query
func LastSegment(link string) string {
	p := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		p = u.Path
	}
	return path.Base(p)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)
}

// isPlaceholder reports whether src is a lazy-load stand-in rather than an image
func isPlaceholder(src string) bool {
	src = strings.TrimSpace(src)
	return src == "" ||
		strings.HasPrefix(src, "data:") ||
		strings.Contains(src, "placeholder") ||
		strings.Contains(src, "blank.gif")
}
