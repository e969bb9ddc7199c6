package accounting

import "context"

// TenantDirectory resolves studios. Resolve returns ErrTenantNotFound for
// unknown slugs.
type TenantDirectory interface {
	Resolve(ctx context.Context, slug string) (string, error)
	List(ctx context.Context) ([]Tenant, error)
}

// Catalog is read access to the relational content store.
type Catalog interface {
	// TrackedBytes returns every record of kind with its stored byte count.
	TrackedBytes(ctx context.Context, tenantID string, kind Kind) ([]TrackedRecord, error)
	// References returns every record of kind with its blob reference.
	References(ctx context.Context, tenantID string, kind Kind) ([]Reference, error)
	Hierarchy(ctx context.Context, tenantID string) (Hierarchy, error)
}

// SnapshotWriter atomically creates or overwrites a tenant's snapshot.
type SnapshotWriter interface {
	Upsert(ctx context.Context, tenantID string, totals Totals) (Snapshot, error)
}

// SnapshotReader returns ErrSnapshotNotFound when no row exists.
type SnapshotReader interface {
	Get(ctx context.Context, tenantID string) (Snapshot, error)
}

type SnapshotStore interface {
	SnapshotWriter
	SnapshotReader
}
