// Package postgres implements the catalog, tenant directory and snapshot
// store on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/converter"
	"github.com/bignyap/studio-storage/database"
	"github.com/bignyap/studio-storage/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of *pgxpool.Pool the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Store struct {
	db           DBTX
	clock        clock.Clock
	defaultQuota int64
}

var (
	_ accounting.Catalog         = (*Store)(nil)
	_ accounting.TenantDirectory = (*Store)(nil)
	_ accounting.SnapshotStore   = (*Store)(nil)
)

func New(db DBTX, clk clock.Clock, defaultQuota int64) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if defaultQuota <= 0 {
		defaultQuota = accounting.DefaultQuotaBytes
	}
	return &Store{db: db, clock: clk, defaultQuota: defaultQuota}
}

// Migrate creates any missing tables in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return database.WithPgxTransaction(ctx, s.db, func(tx pgx.Tx) error {
		for _, stmt := range store.Schema(store.PostgresTypes) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return database.WrapError("migrate", err)
			}
		}
		return nil
	})
}

func (s *Store) Resolve(ctx context.Context, slug string) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM tenants WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if database.IsNotFound(err) {
			return "", fmt.Errorf("%q: %w", slug, accounting.ErrTenantNotFound)
		}
		return "", database.WrapError("resolve tenant", err)
	}
	return id, nil
}

func (s *Store) List(ctx context.Context) ([]accounting.Tenant, error) {
	rows, err := s.db.Query(ctx, `SELECT id, slug, name FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, database.WrapError("list tenants", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.Tenant, error) {
		var t accounting.Tenant
		err := row.Scan(&t.ID, &t.Slug, &t.Name)
		return t, err
	})
}

func (s *Store) TrackedBytes(ctx context.Context, tenantID string, kind accounting.Kind) ([]accounting.TrackedRecord, error) {
	q, err := store.TrackedQuery(kind, store.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, q, tenantID)
	if err != nil {
		return nil, database.WrapError("tracked bytes", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.TrackedRecord, error) {
		var (
			id    string
			bytes pgtype.Int8
		)
		if err := row.Scan(&id, &bytes); err != nil {
			return accounting.TrackedRecord{}, err
		}
		return accounting.TrackedRecord{ID: id, Bytes: converter.FromPgInt8Ptr(bytes)}, nil
	})
}

func (s *Store) References(ctx context.Context, tenantID string, kind accounting.Kind) ([]accounting.Reference, error) {
	q, err := store.ReferencesQuery(kind, store.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, q, tenantID)
	if err != nil {
		return nil, database.WrapError("references", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.Reference, error) {
		var r accounting.Reference
		err := row.Scan(&r.RecordID, &r.Ref)
		return r, err
	})
}

func (s *Store) Hierarchy(ctx context.Context, tenantID string) (accounting.Hierarchy, error) {
	var h accounting.Hierarchy

	rows, err := s.db.Query(ctx, store.SectionsQuery(store.Dollar), tenantID)
	if err != nil {
		return h, database.WrapError("sections", err)
	}
	if h.Sections, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.Section, error) {
		var sec accounting.Section
		err := row.Scan(&sec.ID, &sec.Name)
		return sec, err
	}); err != nil {
		return h, database.WrapError("sections", err)
	}

	rows, err = s.db.Query(ctx, store.CategoriesQuery(store.Dollar), tenantID)
	if err != nil {
		return h, database.WrapError("categories", err)
	}
	if h.Categories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.CategoryLink, error) {
		var c accounting.CategoryLink
		err := row.Scan(&c.ID, &c.SectionID)
		return c, err
	}); err != nil {
		return h, database.WrapError("categories", err)
	}

	rows, err = s.db.Query(ctx, store.ItemsQuery(store.Dollar), tenantID)
	if err != nil {
		return h, database.WrapError("items", err)
	}
	if h.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (accounting.ItemLink, error) {
		var it accounting.ItemLink
		err := row.Scan(&it.ID, &it.CategoryID)
		return it, err
	}); err != nil {
		return h, database.WrapError("items", err)
	}

	return h, nil
}

const upsertSnapshot = `
INSERT INTO tenant_storage_usage
	(tenant_id, total_bytes, per_kind, sections, quota_limit_bytes, last_calculated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id) DO UPDATE SET
	total_bytes = EXCLUDED.total_bytes,
	per_kind = EXCLUDED.per_kind,
	sections = EXCLUDED.sections,
	last_calculated_at = EXCLUDED.last_calculated_at
RETURNING tenant_id, total_bytes, per_kind, sections, quota_limit_bytes, last_calculated_at`

const selectSnapshot = `
SELECT tenant_id, total_bytes, per_kind, sections, quota_limit_bytes, last_calculated_at
FROM tenant_storage_usage WHERE tenant_id = $1`

// Upsert writes the snapshot in a single statement. The quota is only set
// when the row is created.
func (s *Store) Upsert(ctx context.Context, tenantID string, totals accounting.Totals) (accounting.Snapshot, error) {
	perKind, sections, err := store.EncodeTotals(totals)
	if err != nil {
		return accounting.Snapshot{}, err
	}
	row := s.db.QueryRow(ctx, upsertSnapshot,
		tenantID,
		totals.TotalBytes,
		perKind,
		sections,
		s.defaultQuota,
		converter.ToPgTimestamptz(s.clock.Now()),
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		return accounting.Snapshot{}, database.WrapError("upsert snapshot", err)
	}
	return snap, nil
}

func (s *Store) Get(ctx context.Context, tenantID string) (accounting.Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRow(ctx, selectSnapshot, tenantID))
	if err != nil {
		if database.IsNotFound(err) {
			return accounting.Snapshot{}, fmt.Errorf("%s: %w", tenantID, accounting.ErrSnapshotNotFound)
		}
		return accounting.Snapshot{}, database.WrapError("get snapshot", err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (accounting.Snapshot, error) {
	var (
		snap              accounting.Snapshot
		perKind, sections []byte
		at                pgtype.Timestamptz
	)
	if err := row.Scan(&snap.TenantID, &snap.TotalBytes, &perKind, &sections, &snap.QuotaLimitBytes, &at); err != nil {
		return accounting.Snapshot{}, err
	}
	if err := store.DecodeTotals(perKind, sections, &snap); err != nil {
		return accounting.Snapshot{}, err
	}
	snap.LastCalculatedAt = converter.FromPgTimestamptz(at)
	return snap, nil
}
