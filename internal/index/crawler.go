package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
	"github.com/JohnDeved/otrkey-cli/internal/client"
)

var errEmptyListing = errors.New("no files found in listing")

// CrawlProgress reports crawl progress.
type CrawlProgress struct {
	CurrentMirror string
	MirrorsDone   int64
	FilesFound    int64
	Fallbacks     int64
	Skipped       int64
}

// Crawler scrapes mirror listing pages into the cache.
type Crawler struct {
	client     *client.Client
	db         *DB
	staleAfter time.Duration
	force      bool
	workers    int
	current    atomic.Pointer[string]
	onProgress func(CrawlProgress)
	mirrorDone atomic.Int64
	filesFound atomic.Int64
	fallbacks  atomic.Int64
	skipped    atomic.Int64
}

// NewCrawler creates a new crawler.
func NewCrawler(c *client.Client, db *DB, staleAfter time.Duration) *Crawler {
	return &Crawler{
		client:     c,
		db:         db,
		staleAfter: staleAfter,
		workers:    8,
	}
}

// SetForce controls whether stale checks are skipped.
func (cr *Crawler) SetForce(force bool) {
	cr.force = force
}

// SetWorkers controls how many mirrors are scraped in parallel.
func (cr *Crawler) SetWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	cr.workers = workers
}

// SetProgressCallback sets a function called on progress updates.
// It may be called from several goroutines.
func (cr *Crawler) SetProgressCallback(fn func(CrawlProgress)) {
	cr.onProgress = fn
}

// Progress returns the current crawl progress.
func (cr *Crawler) Progress() CrawlProgress {
	current := ""
	if name := cr.current.Load(); name != nil {
		current = *name
	}
	return cr.snapshot(current)
}

func (cr *Crawler) snapshot(mirror string) CrawlProgress {
	return CrawlProgress{
		CurrentMirror: mirror,
		MirrorsDone:   cr.mirrorDone.Load(),
		FilesFound:    cr.filesFound.Load(),
		Fallbacks:     cr.fallbacks.Load(),
		Skipped:       cr.skipped.Load(),
	}
}

func (cr *Crawler) reportProgress(mirror string) {
	cr.current.Store(&mirror)
	if cr.onProgress != nil {
		cr.onProgress(cr.snapshot(mirror))
	}
}

// CrawlAll scrapes every mirror that has a listing URL.
func (cr *Crawler) CrawlAll(ctx context.Context, mirrors []catalog.Mirror) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cr.workers)

	for _, m := range mirrors {
		if m.ListURL == "" {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return cr.CrawlMirror(gctx, m)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// CrawlMirror scrapes a single mirror. Fetch failures keep the cached
// entries and are only counted; database errors and cancellation are returned.
func (cr *Crawler) CrawlMirror(ctx context.Context, m catalog.Mirror) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cr.reportProgress(m.Name)
	defer func() {
		cr.mirrorDone.Add(1)
		cr.reportProgress(m.Name)
	}()

	if !cr.force {
		stale, err := cr.db.IsMirrorStale(m.Name, cr.staleAfter)
		if err != nil {
			return err
		}
		if !stale {
			cr.skipped.Add(1)
			return nil
		}
	}

	files, err := cr.client.ListFiles(ctx, m.ListURL)
	if err == nil && len(files) == 0 {
		err = errEmptyListing
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cached, cerr := cr.db.MirrorFileCount(m.Name)
		if cerr != nil {
			return cerr
		}
		cr.fallbacks.Add(1)
		log.Warn().Err(err).Str("mirror", m.Name).Int("cached", cached).Msg("using cached entries")
		return nil
	}

	if err := cr.db.ReplaceMirrorFiles(m.Name, files); err != nil {
		return fmt.Errorf("storing files for %s: %w", m.Name, err)
	}
	if err := cr.db.MarkMirrorFetched(m.Name); err != nil {
		return err
	}
	cr.filesFound.Add(int64(len(files)))
	log.Info().Str("mirror", m.Name).Int("files", len(files)).Str("url", m.ListURL).Msg("mirror listing stored")
	return nil
}
