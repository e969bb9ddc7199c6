// Package sqlstore implements the catalog, tenant directory and snapshot
// store over database/sql for SQLite and MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/database"
	"github.com/bignyap/studio-storage/store"
)

type Store struct {
	db           *sql.DB
	driver       database.Driver
	clock        clock.Clock
	defaultQuota int64
}

var (
	_ accounting.Catalog         = (*Store)(nil)
	_ accounting.TenantDirectory = (*Store)(nil)
	_ accounting.SnapshotStore   = (*Store)(nil)
)

func New(db *sql.DB, driver database.Driver, clk clock.Clock, defaultQuota int64) (*Store, error) {
	switch driver {
	case database.SQLiteDriver, database.MySQLDriver:
	default:
		return nil, fmt.Errorf("sqlstore does not support driver %q", driver)
	}
	if clk == nil {
		clk = clock.New()
	}
	if defaultQuota <= 0 {
		defaultQuota = accounting.DefaultQuotaBytes
	}
	return &Store{db: db, driver: driver, clock: clk, defaultQuota: defaultQuota}, nil
}

func (s *Store) types() store.ColumnTypes {
	if s.driver == database.MySQLDriver {
		return store.MySQLTypes
	}
	return store.SQLiteTypes
}

func (s *Store) Migrate(ctx context.Context) error {
	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for _, stmt := range store.Schema(s.types()) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return database.WrapError("migrate", err)
			}
		}
		return nil
	})
}

func (s *Store) Resolve(ctx context.Context, slug string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM tenants WHERE slug = ?`, slug).Scan(&id)
	if err != nil {
		if database.IsNotFound(err) {
			return "", fmt.Errorf("%q: %w", slug, accounting.ErrTenantNotFound)
		}
		return "", database.WrapError("resolve tenant", err)
	}
	return id, nil
}

func (s *Store) List(ctx context.Context) ([]accounting.Tenant, error) {
	return queryAll(ctx, s.db, `SELECT id, slug, name FROM tenants ORDER BY slug`, nil,
		func(rows *sql.Rows) (accounting.Tenant, error) {
			var t accounting.Tenant
			err := rows.Scan(&t.ID, &t.Slug, &t.Name)
			return t, err
		})
}

func (s *Store) TrackedBytes(ctx context.Context, tenantID string, kind accounting.Kind) ([]accounting.TrackedRecord, error) {
	q, err := store.TrackedQuery(kind, store.Question)
	if err != nil {
		return nil, err
	}
	return queryAll(ctx, s.db, q, []any{tenantID}, func(rows *sql.Rows) (accounting.TrackedRecord, error) {
		var (
			r     accounting.TrackedRecord
			bytes sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &bytes); err != nil {
			return r, err
		}
		if bytes.Valid {
			r.Bytes = &bytes.Int64
		}
		return r, nil
	})
}

func (s *Store) References(ctx context.Context, tenantID string, kind accounting.Kind) ([]accounting.Reference, error) {
	q, err := store.ReferencesQuery(kind, store.Question)
	if err != nil {
		return nil, err
	}
	return queryAll(ctx, s.db, q, []any{tenantID}, func(rows *sql.Rows) (accounting.Reference, error) {
		var r accounting.Reference
		err := rows.Scan(&r.RecordID, &r.Ref)
		return r, err
	})
}

func (s *Store) Hierarchy(ctx context.Context, tenantID string) (accounting.Hierarchy, error) {
	var (
		h    accounting.Hierarchy
		err  error
		args = []any{tenantID}
	)
	h.Sections, err = queryAll(ctx, s.db, store.SectionsQuery(store.Question), args,
		func(rows *sql.Rows) (accounting.Section, error) {
			var sec accounting.Section
			err := rows.Scan(&sec.ID, &sec.Name)
			return sec, err
		})
	if err != nil {
		return h, err
	}
	h.Categories, err = queryAll(ctx, s.db, store.CategoriesQuery(store.Question), args,
		func(rows *sql.Rows) (accounting.CategoryLink, error) {
			var c accounting.CategoryLink
			err := rows.Scan(&c.ID, &c.SectionID)
			return c, err
		})
	if err != nil {
		return h, err
	}
	h.Items, err = queryAll(ctx, s.db, store.ItemsQuery(store.Question), args,
		func(rows *sql.Rows) (accounting.ItemLink, error) {
			var it accounting.ItemLink
			err := rows.Scan(&it.ID, &it.CategoryID)
			return it, err
		})
	return h, err
}

const (
	sqliteUpsert = `
INSERT INTO tenant_storage_usage
	(tenant_id, total_bytes, per_kind, sections, quota_limit_bytes, last_calculated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id) DO UPDATE SET
	total_bytes = excluded.total_bytes,
	per_kind = excluded.per_kind,
	sections = excluded.sections,
	last_calculated_at = excluded.last_calculated_at`

	mysqlUpsert = `
INSERT INTO tenant_storage_usage
	(tenant_id, total_bytes, per_kind, sections, quota_limit_bytes, last_calculated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	total_bytes = VALUES(total_bytes),
	per_kind = VALUES(per_kind),
	sections = VALUES(sections),
	last_calculated_at = VALUES(last_calculated_at)`

	selectSnapshot = `
SELECT tenant_id, total_bytes, per_kind, sections, quota_limit_bytes, last_calculated_at
FROM tenant_storage_usage WHERE tenant_id = ?`
)

// Upsert writes and reads back the snapshot inside one transaction. The
// quota is only set when the row is created.
func (s *Store) Upsert(ctx context.Context, tenantID string, totals accounting.Totals) (accounting.Snapshot, error) {
	perKind, sections, err := store.EncodeTotals(totals)
	if err != nil {
		return accounting.Snapshot{}, err
	}

	upsert := sqliteUpsert
	if s.driver == database.MySQLDriver {
		upsert = mysqlUpsert
	}

	var snap accounting.Snapshot
	err = database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsert,
			tenantID,
			totals.TotalBytes,
			string(perKind),
			string(sections),
			s.defaultQuota,
			s.clock.Now().UTC(),
		); err != nil {
			return err
		}
		var err error
		snap, err = scanSnapshot(tx.QueryRowContext(ctx, selectSnapshot, tenantID))
		return err
	})
	if err != nil {
		return accounting.Snapshot{}, database.WrapError("upsert snapshot", err)
	}
	return snap, nil
}

func (s *Store) Get(ctx context.Context, tenantID string) (accounting.Snapshot, error) {
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, selectSnapshot, tenantID))
	if err != nil {
		if database.IsNotFound(err) {
			return accounting.Snapshot{}, fmt.Errorf("%s: %w", tenantID, accounting.ErrSnapshotNotFound)
		}
		return accounting.Snapshot{}, database.WrapError("get snapshot", err)
	}
	return snap, nil
}

func scanSnapshot(row *sql.Row) (accounting.Snapshot, error) {
	var (
		snap              accounting.Snapshot
		perKind, sections []byte
		at                time.Time
	)
	if err := row.Scan(&snap.TenantID, &snap.TotalBytes, &perKind, &sections, &snap.QuotaLimitBytes, &at); err != nil {
		return accounting.Snapshot{}, err
	}
	if err := store.DecodeTotals(perKind, sections, &snap); err != nil {
		return accounting.Snapshot{}, err
	}
	snap.LastCalculatedAt = at.UTC()
	return snap, nil
}

func queryAll[T any](ctx context.Context, db *sql.DB, q string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, database.WrapError("query", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, database.WrapError("scan", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapError("rows", err)
	}
	return out, nil
}
