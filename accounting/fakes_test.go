package accounting_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bignyap/studio-storage/accounting"
	storageapi "github.com/bignyap/studio-storage/storage/api"
	"github.com/bignyap/studio-storage/storage/adapters/memory"
	"github.com/bignyap/studio-storage/storage/config"
)

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
)

func i64(n int64) *int64 { return &n }

// blobStub wraps the memory store with injectable failures, latency and
// call accounting.
type blobStub struct {
	*memory.Store

	mu        sync.Mutex
	failList  map[string]error
	failSize  map[string]error
	listCalls []string
	onList    func(prefix string)
	sizeDelay time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newBlobStub(omitSizes bool) *blobStub {
	return &blobStub{
		Store:    memory.New(config.MemoryConfig{OmitInlineSizes: omitSizes}),
		failList: map[string]error{},
		failSize: map[string]error{},
	}
}

func (b *blobStub) List(ctx context.Context, prefix, token string, pageSize int) (storageapi.Page, error) {
	b.mu.Lock()
	b.listCalls = append(b.listCalls, prefix)
	err := b.failList[prefix]
	hook := b.onList
	b.mu.Unlock()

	if hook != nil {
		hook(prefix)
	}
	if err != nil {
		return storageapi.Page{}, err
	}
	return b.Store.List(ctx, prefix, token, pageSize)
}

func (b *blobStub) Size(ctx context.Context, path string) (int64, error) {
	n := b.inflight.Add(1)
	defer b.inflight.Add(-1)
	for {
		cur := b.maxInflight.Load()
		if n <= cur || b.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	if b.sizeDelay > 0 {
		select {
		case <-time.After(b.sizeDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	b.mu.Lock()
	err := b.failSize[path]
	b.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return b.Store.Size(ctx, path)
}

func (b *blobStub) listCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.listCalls {
		if p == prefix {
			n++
		}
	}
	return n
}

type catalogStub struct {
	tracked   map[accounting.Kind][]accounting.TrackedRecord
	refs      map[accounting.Kind][]accounting.Reference
	hierarchy accounting.Hierarchy
	err       error
}

func newCatalogStub() *catalogStub {
	return &catalogStub{
		tracked: map[accounting.Kind][]accounting.TrackedRecord{},
		refs:    map[accounting.Kind][]accounting.Reference{},
	}
}

func (c *catalogStub) TrackedBytes(ctx context.Context, tenantID string, kind accounting.Kind) ([]accounting.TrackedRecord, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.tracked[kind], nil
}

func (c *catalogStub) References(ctx context.Context, tenantID string, kind accounting.Kind) ([]accounting.Reference, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.refs[kind], nil
}

func (c *catalogStub) Hierarchy(ctx context.Context, tenantID string) (accounting.Hierarchy, error) {
	if c.err != nil {
		return accounting.Hierarchy{}, c.err
	}
	return c.hierarchy, nil
}

type directoryStub struct {
	ids     map[string]string
	tenants []accounting.Tenant
}

func (d *directoryStub) Resolve(ctx context.Context, slug string) (string, error) {
	id, ok := d.ids[slug]
	if !ok {
		return "", fmt.Errorf("%q: %w", slug, accounting.ErrTenantNotFound)
	}
	return id, nil
}

func (d *directoryStub) List(ctx context.Context) ([]accounting.Tenant, error) {
	return d.tenants, nil
}

type snapshotStub struct {
	mu      sync.Mutex
	upserts int
	rows    map[string]accounting.Snapshot
	err     error
	now     time.Time
}

func newSnapshotStub() *snapshotStub {
	return &snapshotStub{
		rows: map[string]accounting.Snapshot{},
		now:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *snapshotStub) Upsert(ctx context.Context, tenantID string, totals accounting.Totals) (accounting.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.err != nil {
		return accounting.Snapshot{}, s.err
	}
	quota := accounting.DefaultQuotaBytes
	if prev, ok := s.rows[tenantID]; ok {
		quota = prev.QuotaLimitBytes
	}
	s.now = s.now.Add(time.Minute)
	snap := accounting.Snapshot{
		TenantID:         tenantID,
		TotalBytes:       totals.TotalBytes,
		PerKindBytes:     totals.PerKindBytes,
		Sections:         totals.Sections,
		QuotaLimitBytes:  quota,
		LastCalculatedAt: s.now,
	}
	s.rows[tenantID] = snap
	return snap, nil
}

func (s *snapshotStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}
