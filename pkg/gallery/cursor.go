package gallery

import (
	"context"
	stderrors "errors"
	"math"

	"walldo/pkg/errors"
	"walldo/pkg/logger"
	"walldo/pkg/models"
)

// NoStop makes a cursor cover only its start page
const NoStop = math.MinInt

// ErrZeroStep is reported by a cursor created with a page step of zero
var ErrZeroStep = stderrors.New("page step must not be zero")

// Cursor yields the image links of a range of gallery pages. Pages are
// fetched synchronously as the consumer pulls, so abandoning a cursor
// midway leaves nothing running.
//
//	cur := client.Links(query, 1, gallery.NoStop, 1)
//	for cur.Next(ctx) {
//		link := cur.Link()
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor struct {
	client *Client
	query  *models.SearchQuery
	logger logger.Logger

	next int
	stop int
	step int

	firstOfRun bool
	onPage     func(page, links int)

	buf  []models.ImageLink
	idx  int
	link models.ImageLink
	page int

	pagesFailed int
	err         error
	done        bool
}

// Links returns a cursor over pages start, start+step, ... up to but not
// including stop. With stop == NoStop only the start page is visited.
func (c *Client) Links(query *models.SearchQuery, start, stop, step int) *Cursor {
	if stop == NoStop {
		stop = start + 1
		step = 1
	}

	cur := &Cursor{
		client: c,
		query:  query,
		logger: c.logger,
		next:   start,
		stop:   stop,
		step:   step,
	}
	if step == 0 {
		cur.err = ErrZeroStep
		cur.done = true
	}
	return cur
}

// WithFirstPage marks the cursor as starting a run: the first page it
// fetches successfully must contain a gallery, and its served query
// override is recorded on the query
func (cur *Cursor) WithFirstPage() *Cursor {
	cur.firstOfRun = true
	return cur
}

// OnPage registers a callback invoked after each page is fetched and parsed
func (cur *Cursor) OnPage(fn func(page, links int)) *Cursor {
	cur.onPage = fn
	return cur
}

// Next advances to the next link, fetching pages as needed
func (cur *Cursor) Next(ctx context.Context) bool {
	for !cur.done {
		if cur.idx < len(cur.buf) {
			cur.link = cur.buf[cur.idx]
			cur.idx++
			return true
		}

		if !cur.hasMorePages() {
			cur.done = true
			break
		}
		if err := ctx.Err(); err != nil {
			cur.err = err
			cur.done = true
			break
		}

		page := cur.next
		cur.next += cur.step
		cur.load(ctx, page)
	}
	return false
}

// Link returns the current link
func (cur *Cursor) Link() models.ImageLink {
	return cur.link
}

// Page returns the page number the current link came from
func (cur *Cursor) Page() int {
	return cur.page
}

// Err returns the error that stopped the cursor, if any. Transient page
// failures are not reported here; see PagesFailed.
func (cur *Cursor) Err() error {
	return cur.err
}

// PagesFailed returns how many pages could not be fetched or parsed
func (cur *Cursor) PagesFailed() int {
	return cur.pagesFailed
}

func (cur *Cursor) hasMorePages() bool {
	if cur.step > 0 {
		return cur.next < cur.stop
	}
	return cur.next > cur.stop
}

func (cur *Cursor) load(ctx context.Context, page int) {
	cur.buf, cur.idx = nil, 0

	pageURL := PageURL(cur.client.baseURL, cur.query, page)
	links, info, err := cur.client.FetchPage(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			cur.err = ctx.Err()
			cur.done = true
			return
		}

		var pageErr *errors.PageFetchError
		if stderrors.As(err, &pageErr) {
			pageErr.Page = page
		}
		cur.pagesFailed++
		cur.logger.WithError(err).WarnWithFields("skipping gallery page", map[string]interface{}{
			"page": page,
			"url":  pageURL,
		})
		return
	}

	if cur.firstOfRun {
		cur.firstOfRun = false
		if !info.HasGallery {
			cur.err = errors.ErrSearchReturnedNone
			cur.done = true
			return
		}
		if cur.query.SetOverride(info.ServedQuery) {
			cur.logger.InfoWithFields("search redirected to collection", map[string]interface{}{
				"keyword": cur.query.Keyword,
				"served":  info.ServedQuery,
			})
		}
	}

	cur.page = page
	cur.buf = links
	if cur.onPage != nil {
		cur.onPage(page, len(links))
	}
}
