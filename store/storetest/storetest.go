// Package storetest is a conformance suite run against every SQL backend.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
)

type Store interface {
	accounting.Catalog
	accounting.TenantDirectory
	accounting.SnapshotStore
	Migrate(ctx context.Context) error
}

// Exec runs a raw statement against the backend under test.
type Exec func(ctx context.Context, query string, args ...any) error

// Init returns an empty, migrated store that reads time from clk.
type Init func(t *testing.T, clk clock.Clock) (Store, Exec)

var t0 = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

// Run executes the suite. ph renders bind parameters for raw statements.
func Run(t *testing.T, init Init, ph store.Placeholder) {
	t.Run("Directory", func(t *testing.T) { testDirectory(t, init, ph) })
	t.Run("TrackedBytes", func(t *testing.T) { testTrackedBytes(t, init, ph) })
	t.Run("References", func(t *testing.T) { testReferences(t, init, ph) })
	t.Run("Hierarchy", func(t *testing.T) { testHierarchy(t, init, ph) })
	t.Run("Snapshot", func(t *testing.T) { testSnapshot(t, init, ph) })
	t.Run("SnapshotCascade", func(t *testing.T) { testSnapshotCascade(t, init, ph) })
	t.Run("MigrateTwice", func(t *testing.T) {
		s, _ := init(t, clock.NewMock())
		require.NoError(t, s.Migrate(context.Background()))
	})
}

func insert(t *testing.T, exec Exec, ph store.Placeholder, table string, cols string, vals ...any) {
	t.Helper()
	marks := make([]string, len(vals))
	for i := range vals {
		marks[i] = ph(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, strings.Join(marks, ", "))
	require.NoError(t, exec(context.Background(), q, vals...), q)
}

func seed(t *testing.T, exec Exec, ph store.Placeholder) {
	t.Helper()
	insert(t, exec, ph, "tenants", "id, slug, name", "t1", "lumen", "Lumen Studio")
	insert(t, exec, ph, "tenants", "id, slug, name", "t2", "north", "North Light")

	insert(t, exec, ph, "catalog_sections", "id, tenant_id, name, position", "s1", "t1", "Weddings", 1)
	insert(t, exec, ph, "catalog_sections", "id, tenant_id, name, position", "s2", "t1", "Portraits", 0)

	cat := "id, tenant_id, section_id, position, media_url, media_bytes"
	insert(t, exec, ph, "catalog_categories", cat, "c1", "t1", "s1", 0, "tenants/t1/c1.jpg", 120*KiB)
	insert(t, exec, ph, "catalog_categories", cat, "c2", "t1", "s1", 1, "tenants/t1/c2.jpg", 80*KiB)
	insert(t, exec, ph, "catalog_categories", cat, "c3", "t1", nil, 2, nil, nil)

	item := "id, tenant_id, category_id, position, media_url, media_bytes"
	insert(t, exec, ph, "catalog_items", item, "i1", "t1", "c1", 0, "tenants/t1/i1.jpg", 10*KiB)
	insert(t, exec, ph, "catalog_items", item, "i2", "t1", "c1", 1, "tenants/t1/i2.jpg", 5*KiB)
	insert(t, exec, ph, "catalog_items", item, "i3", "t1", "c1", 2, "tenants/t1/i3.jpg", 0)

	insert(t, exec, ph, "posts", "id, tenant_id, media_url, media_bytes", "p1", "t1", "tenants/t1/p1.mp4", 1*MiB)
	insert(t, exec, ph, "posts", "id, tenant_id, media_url, media_bytes", "p9", "t2", "tenants/t2/p9.mp4", 7)

	insert(t, exec, ph, "packages", "id, tenant_id, cover_url, cover_bytes", "k1", "t1", "tenants/t1/packages/k1.jpg", nil)
	insert(t, exec, ph, "packages", "id, tenant_id, cover_url, cover_bytes", "k2", "t1", nil, nil)

	insert(t, exec, ph, "offers", "id, tenant_id, cover_url, cover_bytes", "o1", "t1", "https://cdn.example.com/studio-media/tenants/t1/offers/o1.jpg", nil)
	insert(t, exec, ph, "offers", "id, tenant_id, cover_url, cover_bytes", "o2", "t1", "", nil)
	insert(t, exec, ph, "offer_media", "id, tenant_id, offer_id, url, size_bytes", "m1", "t1", "o1", "tenants/t1/offers/o1/1.jpg", nil)
	insert(t, exec, ph, "offer_media", "id, tenant_id, offer_id, url, size_bytes", "m2", "t1", "o1", "tenants/t1/offers/o1/2.jpg", nil)

	insert(t, exec, ph, "contacts", "id, tenant_id, avatar_url, avatar_bytes", "ct1", "t1", "tenants/t1/avatars/ct1.png", nil)
}

func testDirectory(t *testing.T, init Init, ph store.Placeholder) {
	ctx := context.Background()
	s, exec := init(t, clock.NewMock())
	seed(t, exec, ph)

	id, err := s.Resolve(ctx, "lumen")
	require.NoError(t, err)
	assert.Equal(t, "t1", id)

	_, err = s.Resolve(ctx, "nobody")
	assert.ErrorIs(t, err, accounting.ErrTenantNotFound)

	tenants, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []accounting.Tenant{
		{ID: "t1", Slug: "lumen", Name: "Lumen Studio"},
		{ID: "t2", Slug: "north", Name: "North Light"},
	}, tenants)
}

func ptr(n int64) *int64 { return &n }

func testTrackedBytes(t *testing.T, init Init, ph store.Placeholder) {
	ctx := context.Background()
	s, exec := init(t, clock.NewMock())
	seed(t, exec, ph)

	cats, err := s.TrackedBytes(ctx, "t1", accounting.KindCategoryMedia)
	require.NoError(t, err)
	assert.Equal(t, []accounting.TrackedRecord{
		{ID: "c1", Bytes: ptr(120 * KiB)},
		{ID: "c2", Bytes: ptr(80 * KiB)},
		{ID: "c3"},
	}, cats)

	posts, err := s.TrackedBytes(ctx, "t1", accounting.KindPostMedia)
	require.NoError(t, err)
	assert.Equal(t, []accounting.TrackedRecord{{ID: "p1", Bytes: ptr(1 * MiB)}}, posts)

	covers, err := s.TrackedBytes(ctx, "t1", accounting.KindPackageCover)
	require.NoError(t, err)
	assert.Equal(t, []accounting.TrackedRecord{{ID: "k1"}}, covers, "packages without a cover are not records of this kind")

	none, err := s.TrackedBytes(ctx, "t2", accounting.KindCategoryMedia)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.TrackedBytes(ctx, "t1", accounting.Kind("banner"))
	assert.ErrorIs(t, err, accounting.ErrUnknownKind)
}

func testReferences(t *testing.T, init Init, ph store.Placeholder) {
	ctx := context.Background()
	s, exec := init(t, clock.NewMock())
	seed(t, exec, ph)

	covers, err := s.References(ctx, "t1", accounting.KindOfferCover)
	require.NoError(t, err)
	assert.Equal(t, []accounting.Reference{
		{RecordID: "o1", Ref: "https://cdn.example.com/studio-media/tenants/t1/offers/o1.jpg"},
	}, covers)

	media, err := s.References(ctx, "t1", accounting.KindOfferMedia)
	require.NoError(t, err)
	assert.Equal(t, []accounting.Reference{
		{RecordID: "m1", Ref: "tenants/t1/offers/o1/1.jpg"},
		{RecordID: "m2", Ref: "tenants/t1/offers/o1/2.jpg"},
	}, media)

	cats, err := s.References(ctx, "t1", accounting.KindCategoryMedia)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, accounting.Reference{RecordID: "c3"}, cats[2])
}

func testHierarchy(t *testing.T, init Init, ph store.Placeholder) {
	ctx := context.Background()
	s, exec := init(t, clock.NewMock())
	seed(t, exec, ph)

	h, err := s.Hierarchy(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []accounting.Section{{ID: "s2", Name: "Portraits"}, {ID: "s1", Name: "Weddings"}}, h.Sections)
	assert.Equal(t, []accounting.CategoryLink{
		{ID: "c1", SectionID: "s1"},
		{ID: "c2", SectionID: "s1"},
		{ID: "c3", SectionID: ""},
	}, h.Categories)
	assert.Equal(t, []accounting.ItemLink{
		{ID: "i1", CategoryID: "c1"},
		{ID: "i2", CategoryID: "c1"},
		{ID: "i3", CategoryID: "c1"},
	}, h.Items)

	empty, err := s.Hierarchy(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, empty.Sections)
}

func totals(avatarBytes int64) accounting.Totals {
	return accounting.NewTotals(map[accounting.Kind]int64{
		accounting.KindCategoryMedia: 200 * KiB,
		accounting.KindItemMedia:     15 * KiB,
		accounting.KindContactAvatar: avatarBytes,
	}, []accounting.SectionBreakdown{{
		SectionID: "s1", SectionName: "Weddings",
		CategoryBytes: 200 * KiB, CategoryCount: 2,
		ItemBytes: 15 * KiB, ItemCount: 3,
		Subtotal: 215 * KiB,
	}})
}

func testSnapshot(t *testing.T, init Init, ph store.Placeholder) {
	ctx := context.Background()
	clk := clock.NewMock()
	clk.Set(t0)
	s, exec := init(t, clk)
	seed(t, exec, ph)

	_, err := s.Get(ctx, "t1")
	assert.ErrorIs(t, err, accounting.ErrSnapshotNotFound)

	first, err := s.Upsert(ctx, "t1", totals(6*MiB))
	require.NoError(t, err)
	assert.Equal(t, "t1", first.TenantID)
	assert.Equal(t, 215*KiB+6*MiB, first.TotalBytes)
	assert.Equal(t, accounting.DefaultQuotaBytes, first.QuotaLimitBytes)
	assert.True(t, t0.Equal(first.LastCalculatedAt), "got %s", first.LastCalculatedAt)
	assert.Equal(t, totals(6*MiB).PerKindBytes, first.PerKindBytes)
	assert.Equal(t, totals(6*MiB).Sections, first.Sections)

	// quota is owned by enforcement once the row exists
	require.NoError(t, exec(ctx, "UPDATE tenant_storage_usage SET quota_limit_bytes = "+ph(1)+" WHERE tenant_id = "+ph(2), 5<<30, "t1"))

	clk.Add(time.Hour)
	second, err := s.Upsert(ctx, "t1", totals(1*MiB))
	require.NoError(t, err)
	assert.Equal(t, 215*KiB+1*MiB, second.TotalBytes)
	assert.Equal(t, int64(5<<30), second.QuotaLimitBytes)
	assert.True(t, t0.Add(time.Hour).Equal(second.LastCalculatedAt))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, second, got)

	clk.Add(time.Hour)
	again, err := s.Upsert(ctx, "t1", totals(1*MiB))
	require.NoError(t, err)
	assert.Equal(t, second.TotalBytes, again.TotalBytes)
	assert.Equal(t, second.PerKindBytes, again.PerKindBytes)
	assert.Equal(t, second.Sections, again.Sections)
	assert.True(t, again.LastCalculatedAt.After(second.LastCalculatedAt))
}

func testSnapshotCascade(t *testing.T, init Init, ph store.Placeholder) {
	ctx := context.Background()
	s, exec := init(t, clock.NewMock())
	seed(t, exec, ph)

	_, err := s.Upsert(ctx, "t2", accounting.NewTotals(map[accounting.Kind]int64{accounting.KindPostMedia: 7}, nil))
	require.NoError(t, err)

	require.NoError(t, exec(ctx, "DELETE FROM tenants WHERE id = "+ph(1), "t2"))

	_, err = s.Get(ctx, "t2")
	assert.ErrorIs(t, err, accounting.ErrSnapshotNotFound)
}
