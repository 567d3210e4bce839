// Package gallerytest serves a minimal wallpaper gallery over httptest for
// tests of the download engine.
package gallerytest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"walldo/pkg/config"
	"walldo/pkg/gallery"
	"walldo/pkg/logger"
)

// Server answers /search.php and /img/{id}.jpg. Page n lists the asset ids
// in Pages[n]. Assets marked missing answer 404, BrokenPage answers 500 and
// every image body is id bytes long. Page requests are recorded by query.
type Server struct {
	URL string

	pages      map[int][]int
	NoGallery  atomic.Bool
	BrokenPage atomic.Int32

	mu      sync.Mutex
	missing map[int]bool
	names   map[int]string
	dataURL string
	queries []string

	PageHits  atomic.Int32
	ImageHits atomic.Int32
}

// New starts a gallery that is shut down when the test ends
func New(t testing.TB, pages map[int][]int) *Server {
	t.Helper()
	g := &Server{pages: pages, missing: make(map[int]bool), names: make(map[int]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/search.php", func(w http.ResponseWriter, r *http.Request) {
		g.PageHits.Add(1)
		g.mu.Lock()
		g.queries = append(g.queries, r.URL.RawQuery)
		g.mu.Unlock()
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if int32(page) == g.BrokenPage.Load() {
			http.Error(w, "maintenance", http.StatusInternalServerError)
			return
		}
		if g.NoGallery.Load() {
			fmt.Fprint(w, "<html><body><h1>No results</h1></body></html>")
			return
		}
		fmt.Fprint(w, g.render(page))
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		g.ImageHits.Add(1)
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/img/"), ".jpg"))
		if err != nil || g.IsMissing(id) {
			http.NotFound(w, r)
			return
		}
		w.Write(bytes.Repeat([]byte{'x'}, id))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	g.URL = srv.URL
	return g
}

// SetMissing makes the given assets answer 404
func (g *Server) SetMissing(ids ...int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		g.missing[id] = true
	}
}

// IsMissing reports whether id answers 404
func (g *Server) IsMissing(id int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.missing[id]
}

// SetName gives the assets one shared alt text name instead of "Wall {id}"
func (g *Server) SetName(name string, ids ...int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		g.names[id] = name
	}
}

// SetDataURL makes page 1 carry a data-url collection link on its gallery
// container. Later pages never carry it.
func (g *Server) SetDataURL(dataURL string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dataURL = dataURL
}

// Queries returns the raw query string of every page request so far
func (g *Server) Queries() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.queries...)
}

func (g *Server) render(page int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	if page == 1 && g.dataURL != "" {
		fmt.Fprintf(&b, `<html><body><div class="page_container" data-url="%s">`, g.dataURL)
	} else {
		b.WriteString(`<html><body><div class="page_container">`)
	}
	for _, id := range g.pages[page] {
		name, ok := g.names[id]
		if !ok {
			name = fmt.Sprintf("Wall %d", id)
		}
		fmt.Fprintf(&b, `<img class="img-responsive" alt="%s HD Wallpaper | Background Image" src="/img/thumbbig-%d.jpg">`, name, id)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

// ImageURL returns the full-size link of asset id
func (g *Server) ImageURL(id int) string {
	return fmt.Sprintf("%s/img/%d.jpg", g.URL, id)
}

// Client returns a gallery client pointed at the server
func (g *Server) Client() *gallery.Client {
	return gallery.NewClientWithConfig(&config.SiteConfig{BaseURL: g.URL}, 5*time.Second, logger.NewNopLogger())
}

// IDs returns n consecutive asset ids starting at first
func IDs(first, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = first + i
	}
	return out
}

// Bytes is the total body size of the given assets
func Bytes(ids []int) int64 {
	var n int64
	for _, id := range ids {
		n += int64(id)
	}
	return n
}
