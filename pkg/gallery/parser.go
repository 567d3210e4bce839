package gallery

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"walldo/pkg/models"
)

const (
	imageSelector     = "img.img-responsive"
	containerSelector = "div.page_container, #page_container"
)

// PageInfo describes the gallery container found on a page
type PageInfo struct {
	// HasGallery is false when the page carries no gallery container,
	// which is how the site answers a search with no results
	HasGallery bool
	// ServedQuery is the collection URL the site substituted for the keyword
	ServedQuery string
}

// ParsePage extracts image links from a gallery page in document order.
// Relative image and collection URLs are resolved against pageURL.
func ParsePage(r io.Reader, pageURL string) ([]models.ImageLink, *PageInfo, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	info := &PageInfo{}
	if container := doc.Find(containerSelector).First(); container.Length() > 0 {
		info.HasGallery = true
		if served, ok := container.Attr("data-url"); ok && strings.TrimSpace(served) != "" {
			info.ServedQuery = resolve(base, strings.TrimSpace(served))
		}
	}

	var links []models.ImageLink
	doc.Find(imageSelector).Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			return
		}

		link := resolve(base, FullSizeURL(src))
		alt, _ := img.Attr("alt")
		name := DisplayName(alt)
		if name == "" {
			name = DisplayName(AssetID(link))
		}

		links = append(links, models.ImageLink{Name: name, URL: link})
	})

	return links, info, nil
}

// imageSource returns src, or data-src when src is a lazy-load placeholder
func imageSource(img *goquery.Selection) string {
	src, _ := img.Attr("src")
	if isPlaceholder(src) {
		src, _ = img.Attr("data-src")
	}
	src = strings.TrimSpace(src)
	if isPlaceholder(src) {
		return ""
	}
	return src
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
