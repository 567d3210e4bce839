// Package session drives complete download runs for a keyword.
//
// A Controller repeats page rounds against the gallery until the requested
// number of images has been written or the retry budget is spent. Each round
// fetches one gallery page, splits its links into batches and downloads every
// batch in its own goroutine. The controller keeps the stats of the last run
// and the totals of all runs since it was created.
//
// Usage:
//
//	client := gallery.NewClientWithConfig(&cfg.Site, cfg.Download.Timeout, log)
//	ctrl, err := session.New(client, cfg, observer, log)
//	if err != nil {
//	    return err
//	}
//
//	snap, err := ctrl.StartDownload(ctx, session.Request{
//	    Keyword:   "ironman",
//	    NumImages: 30,
//	    TargetDir: "./wallpapers/ironman",
//	})
//	if errors.Is(err, walldoerrors.ErrMaxRetriesCrossed) {
//	    // partial download, snap still describes what landed on disk
//	}
//
// Existing files are skipped and not counted, so running the same request
// twice continues into later gallery pages instead of downloading duplicates.
package session
