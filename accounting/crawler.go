package accounting

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/bignyap/studio-storage/logger/api"
	otelapi "github.com/bignyap/studio-storage/otel/api"
	storageapi "github.com/bignyap/studio-storage/storage/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultCrawlConcurrency caps in-flight size lookups and subtree walks
// when no limit is configured.
const DefaultCrawlConcurrency = 8

// Crawler sums the sizes of every object below a prefix.
type Crawler struct {
	store    storageapi.BlobStore
	pageSize int
	log      api.Logger
	tel      *instruments

	// Shared by every crawl on this Crawler. lookups bounds fallback Size
	// calls; walkers bounds subtrees listed on their own goroutine.
	lookups *semaphore.Weighted
	walkers *semaphore.Weighted
}

type CrawlerOption func(*crawlerOptions)

type crawlerOptions struct {
	concurrency int
}

// WithCrawlConcurrency caps concurrent size lookups and concurrent subtree
// walks at n each.
func WithCrawlConcurrency(n int) CrawlerOption {
	return func(o *crawlerOptions) { o.concurrency = n }
}

func NewCrawler(store storageapi.BlobStore, pageSize int, log api.Logger, provider otelapi.Provider, opts ...CrawlerOption) *Crawler {
	o := crawlerOptions{concurrency: DefaultCrawlConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	return newCrawler(store, pageSize, o.concurrency, log, newInstruments(provider, log))
}

func newCrawler(store storageapi.BlobStore, pageSize, concurrency int, log api.Logger, tel *instruments) *Crawler {
	if pageSize <= 0 {
		pageSize = storageapi.DefaultPageSize
	}
	if concurrency <= 0 {
		concurrency = DefaultCrawlConcurrency
	}
	return &Crawler{
		store:    store,
		pageSize: pageSize,
		log:      api.OrDefault(log).WithComponent("accounting.crawler"),
		tel:      tel,
		lookups:  semaphore.NewWeighted(int64(concurrency)),
		walkers:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Entries yields the direct children of prefix, requesting pages lazily
// until the store stops returning a continuation token. A listing error is
// yielded once and ends the sequence.
func (c *Crawler) Entries(ctx context.Context, prefix string) iter.Seq2[storageapi.Entry, error] {
	return func(yield func(storageapi.Entry, error) bool) {
		token := ""
		for {
			page, err := c.store.List(ctx, prefix, token, c.pageSize)
			if err != nil {
				yield(storageapi.Entry{}, err)
				return
			}
			for _, e := range page.Entries {
				if !yield(e, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			if page.NextPageToken == token {
				yield(storageapi.Entry{}, fmt.Errorf("listing of %q did not advance past token %q", prefix, token))
				return
			}
			token = page.NextPageToken
		}
	}
}

// Crawl walks root recursively. Listing and size failures are logged and
// counted as zero bytes; only context cancellation is returned.
func (c *Crawler) Crawl(ctx context.Context, root string) (Usage, error) {
	ctx, span := c.tel.tracer.Start(ctx, "accounting.crawl",
		trace.WithAttributes(attribute.String(otelapi.BlobPrefixKey, root)))
	defer span.End()

	u, err := c.walk(ctx, root)
	if err != nil {
		otelapi.RecordError(ctx, err)
		return Usage{}, err
	}
	span.SetAttributes(
		attribute.Int64("blob.bytes", u.Bytes),
		attribute.Int("blob.count", u.Count),
		attribute.Int("blob.failures", u.Failures),
	)
	return u, nil
}

// walk sums one prefix. Subdirectories get their own goroutine while a
// walker slot is free and are walked inline otherwise, so a walk never
// waits on a slot held by one of its ancestors. Files without an inline
// size are sized under the lookups semaphore.
func (c *Crawler) walk(ctx context.Context, prefix string) (Usage, error) {
	var (
		mu     sync.Mutex
		branch Usage
	)
	add := func(u Usage) {
		mu.Lock()
		branch = branch.Add(u)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	var listErr error
	for e, err := range c.Entries(gctx, prefix) {
		if err != nil {
			listErr = err
			break
		}

		if e.IsDir {
			if e.Path == prefix {
				continue
			}
			if c.walkers.TryAcquire(1) {
				g.Go(func() error {
					defer c.walkers.Release(1)
					sub, err := c.walk(gctx, e.Path)
					if err != nil {
						return err
					}
					add(sub)
					return nil
				})
				continue
			}
			sub, err := c.walk(gctx, e.Path)
			if err != nil {
				listErr = err
				break
			}
			add(sub)
			continue
		}

		if e.Size != nil {
			add(Usage{Bytes: *e.Size, Count: 1})
			continue
		}
		if err := c.lookups.Acquire(gctx, 1); err != nil {
			listErr = err
			break
		}
		g.Go(func() error {
			defer c.lookups.Release(1)
			u, err := c.lookup(gctx, e.Path)
			if err != nil {
				return err
			}
			add(u)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Usage{}, err
	}
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	if listErr != nil {
		c.log.Warn(ctx, "blob listing failed; branch counted as zero",
			api.String("prefix", prefix), api.ErrorField(listErr))
		c.tel.blobFailure(ctx, "list")
		// drop whatever this branch had accumulated, keep nested failure counts
		return Usage{Failures: branch.Failures + 1}, nil
	}
	return branch, nil
}

// lookup sizes one file whose listing carried no size. A failed lookup
// counts as zero bytes unless the context is done.
func (c *Crawler) lookup(ctx context.Context, path string) (Usage, error) {
	size, err := c.store.Size(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Usage{}, ctxErr
		}
		c.log.Warn(ctx, "blob size lookup failed; counted as zero",
			api.String("path", path), api.ErrorField(err))
		c.tel.blobFailure(ctx, "size")
		return Usage{Failures: 1}, nil
	}
	return Usage{Bytes: size, Count: 1}, nil
}
