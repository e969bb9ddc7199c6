package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bignyap/studio-storage/logger/api"
	otelapi "github.com/bignyap/studio-storage/otel/api"
	storageapi "github.com/bignyap/studio-storage/storage/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators of an Accountant.
type Deps struct {
	Tenants   TenantDirectory
	Catalog   Catalog
	Blobs     storageapi.BlobStore
	Snapshots SnapshotWriter
	Logger    api.Logger
	Telemetry otelapi.Provider
}

func (d Deps) validate() error {
	var errs []error
	if d.Tenants == nil {
		errs = append(errs, errors.New("tenant directory is required"))
	}
	if d.Catalog == nil {
		errs = append(errs, errors.New("catalog is required"))
	}
	if d.Blobs == nil {
		errs = append(errs, errors.New("blob store is required"))
	}
	if d.Snapshots == nil {
		errs = append(errs, errors.New("snapshot writer is required"))
	}
	return errors.Join(errs...)
}

// Accountant recomputes tenant storage usage and persists the snapshot.
type Accountant struct {
	cfg        Config
	tenants    TenantDirectory
	catalog    Catalog
	snapshots  SnapshotWriter
	collectors []*Collector
	aggregator *Aggregator
	log        api.Logger
	tel        *instruments
}

func NewAccountant(cfg Config, policy Policy, deps Deps) (*Accountant, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	log := api.OrDefault(deps.Logger)
	tel := newInstruments(deps.Telemetry, log)
	crawler := newCrawler(deps.Blobs, cfg.PageSize, cfg.concurrency(), log, tel)

	collectors := make([]*Collector, 0, len(Kinds))
	for _, k := range Kinds {
		collectors = append(collectors, newCollector(k, policy[k], cfg, deps.Catalog, deps.Blobs, crawler, log, tel))
	}

	return &Accountant{
		cfg:        cfg,
		tenants:    deps.Tenants,
		catalog:    deps.Catalog,
		snapshots:  deps.Snapshots,
		collectors: collectors,
		aggregator: NewAggregator(log),
		log:        log.WithComponent("accounting"),
		tel:        tel,
	}, nil
}

// Recompute measures every kind for the tenant behind slug and overwrites
// its snapshot. A cancelled context never reaches the snapshot writer.
func (a *Accountant) Recompute(ctx context.Context, slug string) (Report, error) {
	start := time.Now()
	ctx, span := a.tel.tracer.Start(ctx, "accounting.recompute",
		trace.WithAttributes(otelapi.TenantSlug(slug)))
	defer span.End()

	report, err := a.recompute(ctx, slug)
	if err != nil {
		otelapi.RecordError(ctx, err)
		a.tel.recompute(ctx, "failed", time.Since(start))
		return Report{}, err
	}

	outcome := "ok"
	if report.Degraded > 0 {
		outcome = "degraded"
	}
	a.tel.recompute(ctx, outcome, time.Since(start))
	span.SetAttributes(
		otelapi.TenantID(report.TenantID),
		attribute.Int64("accounting.total_bytes", report.TotalBytes),
		attribute.Int("accounting.degraded", report.Degraded),
	)
	return report, nil
}

func (a *Accountant) recompute(ctx context.Context, slug string) (Report, error) {
	tenantID, err := a.tenants.Resolve(ctx, slug)
	if err != nil {
		return Report{}, fmt.Errorf("failed to resolve tenant %q: %w", slug, err)
	}
	log := a.log.WithFields(api.String("tenant_id", tenantID), api.String("slug", slug))
	log.Info(ctx, "recomputing storage usage")

	results := make([]Result, len(a.collectors))
	var hierarchy Hierarchy

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range a.collectors {
		g.Go(func() error {
			r, err := c.Collect(gctx, tenantID)
			if err != nil {
				return fmt.Errorf("collect %s: %w", c.Kind(), err)
			}
			results[i] = r
			return nil
		})
	}
	g.Go(func() error {
		h, err := a.catalog.Hierarchy(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to read catalog hierarchy: %w", err)
		}
		hierarchy = h
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error(ctx, "recompute aborted", err)
		return Report{}, err
	}

	var (
		perKind    = make(map[Kind]int64, len(results))
		categories []RecordUsage
		items      []RecordUsage
		degraded   int
		untracked  int
	)
	for _, r := range results {
		perKind[r.Kind] = r.Usage.Bytes
		degraded += r.Usage.Failures
		untracked += r.Usage.Untracked
		switch r.Kind {
		case KindCategoryMedia:
			categories = r.Records
		case KindItemMedia:
			items = r.Records
		}
	}

	sections, skipped := a.aggregator.Aggregate(ctx, categories, items, hierarchy)
	degraded += skipped
	totals := NewTotals(perKind, sections)

	if err := ctx.Err(); err != nil {
		log.Warn(ctx, "recompute cancelled before persisting", api.ErrorField(err))
		return Report{}, err
	}

	snap, err := a.snapshots.Upsert(ctx, tenantID, totals)
	if err != nil {
		log.Error(ctx, "failed to persist snapshot", err)
		return Report{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	log.Info(ctx, "storage usage recomputed",
		api.Bytes("total", snap.TotalBytes),
		api.Int("sections", len(snap.Sections)),
		api.Int("degraded", degraded),
		api.Int("untracked", untracked))

	return Report{
		TenantID:         tenantID,
		Slug:             slug,
		TotalBytes:       snap.TotalBytes,
		PerKindBytes:     snap.PerKindBytes,
		Sections:         snap.Sections,
		QuotaLimitBytes:  snap.QuotaLimitBytes,
		LastCalculatedAt: snap.LastCalculatedAt,
		Degraded:         degraded,
		Untracked:        untracked,
	}, nil
}

// RecomputeAll recomputes every tenant in the directory one at a time.
// Per-tenant failures are logged and counted; only cancellation or a
// directory failure ends the sweep early.
func (a *Accountant) RecomputeAll(ctx context.Context) (SweepResult, error) {
	tenants, err := a.tenants.List(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list tenants: %w", err)
	}

	res := SweepResult{Tenants: len(tenants)}
	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		tctx, cancel := a.WithTimeout(ctx)
		_, err := a.Recompute(tctx, t.Slug)
		cancel()
		if err != nil {
			res.Failed++
			a.log.Error(ctx, "tenant recompute failed", err, api.String("slug", t.Slug))
			continue
		}
		res.Succeeded++
	}

	a.log.Info(ctx, "storage sweep finished",
		api.Int("tenants", res.Tenants),
		api.Int("succeeded", res.Succeeded),
		api.Int("failed", res.Failed))
	return res, ctx.Err()
}

// WithTimeout applies the configured recompute deadline to ctx.
func (a *Accountant) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.RecomputeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.RecomputeTimeout)
}
