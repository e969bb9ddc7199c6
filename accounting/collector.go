package accounting

import (
	"context"
	"fmt"

	"github.com/bignyap/studio-storage/logger/api"
	otelapi "github.com/bignyap/studio-storage/otel/api"
	storageapi "github.com/bignyap/studio-storage/storage/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Collector measures one kind for a tenant according to its ByteSource.
type Collector struct {
	kind        Kind
	source      ByteSource
	catalog     Catalog
	blobs       storageapi.BlobStore
	crawler     *Crawler
	concurrency int
	bucket      string
	log         api.Logger
	tel         *instruments
}

func NewCollector(kind Kind, source ByteSource, cfg Config, catalog Catalog, blobs storageapi.BlobStore, log api.Logger, provider otelapi.Provider) *Collector {
	tel := newInstruments(provider, log)
	return newCollector(kind, source, cfg, catalog, blobs, newCrawler(blobs, cfg.PageSize, cfg.concurrency(), log, tel), log, tel)
}

func newCollector(kind Kind, source ByteSource, cfg Config, catalog Catalog, blobs storageapi.BlobStore, crawler *Crawler, log api.Logger, tel *instruments) *Collector {
	return &Collector{
		kind:        kind,
		source:      source,
		catalog:     catalog,
		blobs:       blobs,
		crawler:     crawler,
		concurrency: cfg.concurrency(),
		bucket:      cfg.Bucket,
		log:         api.OrDefault(log).WithComponent("accounting.collector").WithFields(api.String("kind", string(kind))),
		tel:         tel,
	}
}

func (c *Collector) Kind() Kind { return c.kind }

// Collect returns the kind's usage. Per-blob failures are absorbed into
// Usage.Failures; catalog errors and cancellation are returned.
func (c *Collector) Collect(ctx context.Context, tenantID string) (Result, error) {
	ctx, span := c.tel.tracer.Start(ctx, "accounting.collect", trace.WithAttributes(
		attribute.String(otelapi.KindKey, string(c.kind)),
		attribute.String("accounting.source", c.source.String()),
	))
	defer span.End()

	c.log.Debug(ctx, "collecting", api.String("source", c.source.String()))

	var (
		res Result
		err error
	)
	switch src := c.source.(type) {
	case Tracked:
		res, err = c.collectTracked(ctx, tenantID)
	case Live:
		switch src.Layout {
		case LayoutSharedFolder:
			res, err = c.collectSharedFolder(ctx, tenantID, src)
		case LayoutFolderPerRecord:
			res, err = c.collectFolders(ctx, tenantID, src)
		case LayoutFilePerRecord:
			res, err = c.collectFiles(ctx, tenantID, src)
		default:
			err = fmt.Errorf("%s: unknown layout %q", c.kind, src.Layout)
		}
	default:
		err = fmt.Errorf("%s: unsupported byte source %T", c.kind, c.source)
	}
	if err != nil {
		otelapi.RecordError(ctx, err)
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Int64("accounting.bytes", res.Usage.Bytes),
		attribute.Int("accounting.failures", res.Usage.Failures),
	)
	c.log.Debug(ctx, "collected",
		api.Bytes("bytes", res.Usage.Bytes),
		api.Int("count", res.Usage.Count),
		api.Int("failures", res.Usage.Failures))
	return res, nil
}

func (c *Collector) collectTracked(ctx context.Context, tenantID string) (Result, error) {
	rows, err := c.catalog.TrackedBytes(ctx, tenantID, c.kind)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read tracked bytes for %s: %w", c.kind, err)
	}

	res := Result{Kind: c.kind, Records: make([]RecordUsage, 0, len(rows))}
	for _, r := range rows {
		var n int64
		if r.Bytes != nil {
			n = *r.Bytes
		} else {
			res.Usage.Untracked++
		}
		res.Usage.Bytes += n
		res.Usage.Count++
		res.Records = append(res.Records, RecordUsage{ID: r.ID, Bytes: n})
	}
	if res.Usage.Untracked > 0 {
		c.log.Warn(ctx, "records without tracked bytes counted as zero",
			api.Int("records", res.Usage.Untracked))
	}
	return res, nil
}

func (c *Collector) collectSharedFolder(ctx context.Context, tenantID string, src Live) (Result, error) {
	u, err := c.crawler.Crawl(ctx, asFolder(RenderPath(src.Path, tenantID, "")))
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: c.kind, Usage: u}, nil
}

func (c *Collector) collectFolders(ctx context.Context, tenantID string, src Live) (Result, error) {
	refs, err := c.catalog.References(ctx, tenantID, c.kind)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read references for %s: %w", c.kind, err)
	}

	usages := make([]Usage, len(refs))
	err = c.forEach(ctx, len(refs), func(ctx context.Context, i int) error {
		u, err := c.crawler.Crawl(ctx, asFolder(RenderPath(src.Path, tenantID, refs[i].RecordID)))
		if err != nil {
			return err
		}
		usages[i] = u
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Kind: c.kind, Records: make([]RecordUsage, len(refs))}
	for i, u := range usages {
		res.Usage = res.Usage.Add(u)
		res.Records[i] = RecordUsage{ID: refs[i].RecordID, Bytes: u.Bytes}
	}
	return res, nil
}

func (c *Collector) collectFiles(ctx context.Context, tenantID string, src Live) (Result, error) {
	refs, err := c.catalog.References(ctx, tenantID, c.kind)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read references for %s: %w", c.kind, err)
	}

	sizes := make([]int64, len(refs))
	failed := make([]bool, len(refs))
	err = c.forEach(ctx, len(refs), func(ctx context.Context, i int) error {
		key := c.objectKey(tenantID, src, refs[i])
		if key == "" {
			c.log.Warn(ctx, "record has no resolvable blob reference; counted as zero",
				api.String("record_id", refs[i].RecordID))
			failed[i] = true
			return nil
		}
		n, err := c.blobs.Size(ctx, key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.log.Warn(ctx, "blob size lookup failed; counted as zero",
				api.String("record_id", refs[i].RecordID),
				api.String("path", key),
				api.ErrorField(err))
			c.tel.blobFailure(ctx, "size")
			failed[i] = true
			return nil
		}
		sizes[i] = n
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Kind: c.kind, Records: make([]RecordUsage, len(refs))}
	for i, n := range sizes {
		res.Usage.Bytes += n
		res.Usage.Count++
		if failed[i] {
			res.Usage.Failures++
		}
		res.Records[i] = RecordUsage{ID: refs[i].RecordID, Bytes: n}
	}
	return res, nil
}

func (c *Collector) objectKey(tenantID string, src Live, ref Reference) string {
	if ref.Ref != "" {
		return ObjectKey(ref.Ref, c.bucket)
	}
	if src.Path != "" {
		return RenderPath(src.Path, tenantID, ref.RecordID)
	}
	return ""
}

// forEach runs fn for indexes [0, n) with at most c.concurrency in flight.
// fn must only return errors that should abort the whole collection.
func (c *Collector) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
