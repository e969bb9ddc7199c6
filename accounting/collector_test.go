package accounting_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/logger/adapters/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() accounting.Config {
	cfg := accounting.DefaultConfig()
	cfg.Bucket = "studio-media"
	return cfg
}

func TestCollectTracked(t *testing.T) {
	cat := newCatalogStub()
	cat.tracked[accounting.KindPackageCover] = []accounting.TrackedRecord{
		{ID: "p1", Bytes: i64(300)},
		{ID: "p2", Bytes: nil},
		{ID: "p3", Bytes: i64(700)},
	}
	log := mock.NewMockLogger()

	c := accounting.NewCollector(accounting.KindPackageCover, accounting.Tracked{}, testConfig(), cat, newBlobStub(false), log, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, accounting.KindPackageCover, res.Kind)
	assert.Equal(t, accounting.Usage{Bytes: 1000, Count: 3, Untracked: 1}, res.Usage)
	assert.Equal(t, []accounting.RecordUsage{{ID: "p1", Bytes: 300}, {ID: "p2"}, {ID: "p3", Bytes: 700}}, res.Records)
	assert.True(t, log.HasWarning("without tracked bytes"))
}

func TestCollectCatalogFailureIsReturned(t *testing.T) {
	cat := newCatalogStub()
	cat.err = errors.New("connection refused")

	for _, src := range []accounting.ByteSource{
		accounting.Tracked{},
		accounting.Live{Layout: accounting.LayoutFilePerRecord},
		accounting.Live{Layout: accounting.LayoutFolderPerRecord, Path: "x/{id}/"},
	} {
		c := accounting.NewCollector(accounting.KindOfferMedia, src, testConfig(), cat, newBlobStub(false), nil, nil)
		_, err := c.Collect(context.Background(), "t1")
		assert.ErrorContains(t, err, "connection refused", src.String())
	}
}

func TestCollectSharedFolder(t *testing.T) {
	store := newBlobStub(false)
	store.Put("tenants/t1/avatars/a.png", 10)
	store.Put("tenants/t1/avatars/2024/b.png", 20)
	store.Put("tenants/t2/avatars/c.png", 999)

	src := accounting.Live{Layout: accounting.LayoutSharedFolder, Path: "tenants/{tenant}/avatars"}
	c := accounting.NewCollector(accounting.KindContactAvatar, src, testConfig(), newCatalogStub(), store, nil, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Usage.Bytes)
	assert.Equal(t, 2, res.Usage.Count)
	assert.Empty(t, res.Records)
}

func TestCollectFilePerRecord(t *testing.T) {
	store := newBlobStub(false)
	store.Put("tenants/t1/offers/o1/cover.jpg", 400)
	store.Put("tenants/t1/offers/o2/cover.jpg", 600)

	cat := newCatalogStub()
	cat.refs[accounting.KindOfferCover] = []accounting.Reference{
		{RecordID: "o1", Ref: "https://minio.example.com/studio-media/tenants/t1/offers/o1/cover.jpg"},
		{RecordID: "o2", Ref: "tenants/t1/offers/o2/cover.jpg"},
		{RecordID: "o3", Ref: "tenants/t1/offers/o3/missing.jpg"},
	}
	log := mock.NewMockLogger()

	c := accounting.NewCollector(accounting.KindOfferCover, accounting.Live{Layout: accounting.LayoutFilePerRecord}, testConfig(), cat, store, log, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, accounting.Usage{Bytes: 1000, Count: 3, Failures: 1}, res.Usage)
	assert.Equal(t, []accounting.RecordUsage{{ID: "o1", Bytes: 400}, {ID: "o2", Bytes: 600}, {ID: "o3"}}, res.Records)
	assert.True(t, log.HasWarning("size lookup failed"))
}

func TestCollectFilePerRecordFallsBackToPathTemplate(t *testing.T) {
	store := newBlobStub(false)
	store.Put("tenants/t1/covers/p1.jpg", 42)

	cat := newCatalogStub()
	cat.refs[accounting.KindPackageCover] = []accounting.Reference{{RecordID: "p1"}}

	src := accounting.Live{Layout: accounting.LayoutFilePerRecord, Path: "tenants/{tenant}/covers/{id}.jpg"}
	c := accounting.NewCollector(accounting.KindPackageCover, src, testConfig(), cat, store, nil, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Usage.Bytes)
	assert.Zero(t, res.Usage.Failures)
}

func TestCollectFilePerRecordWithoutReference(t *testing.T) {
	cat := newCatalogStub()
	cat.refs[accounting.KindOfferCover] = []accounting.Reference{{RecordID: "o1"}}

	c := accounting.NewCollector(accounting.KindOfferCover, accounting.Live{Layout: accounting.LayoutFilePerRecord}, testConfig(), cat, newBlobStub(false), nil, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, 1, res.Usage.Failures)
	assert.Zero(t, res.Usage.Bytes)
}

func TestCollectFolderPerRecord(t *testing.T) {
	store := newBlobStub(false)
	store.Put("tenants/t1/portfolio/a/1.jpg", 100)
	store.Put("tenants/t1/portfolio/a/2.jpg", 150)
	store.Put("tenants/t1/portfolio/b/raw/1.cr2", 1000)
	store.failList["tenants/t1/portfolio/c/"] = errors.New("boom")

	cat := newCatalogStub()
	cat.refs[accounting.KindPortfolioMedia] = []accounting.Reference{{RecordID: "a"}, {RecordID: "b"}, {RecordID: "c"}}

	src := accounting.Live{Layout: accounting.LayoutFolderPerRecord, Path: "tenants/{tenant}/portfolio/{id}"}
	c := accounting.NewCollector(accounting.KindPortfolioMedia, src, testConfig(), cat, store, nil, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, accounting.Usage{Bytes: 1250, Count: 3, Failures: 1}, res.Usage)
	assert.Equal(t, []accounting.RecordUsage{{ID: "a", Bytes: 250}, {ID: "b", Bytes: 1000}, {ID: "c"}}, res.Records)
}

func TestCollectLookupsAreBounded(t *testing.T) {
	store := newBlobStub(false)
	store.sizeDelay = 5 * time.Millisecond

	cat := newCatalogStub()
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("tenants/t1/offers/%d.jpg", i)
		store.Put(key, 1)
		cat.refs[accounting.KindOfferMedia] = append(cat.refs[accounting.KindOfferMedia],
			accounting.Reference{RecordID: fmt.Sprint(i), Ref: key})
	}

	cfg := testConfig()
	cfg.LookupConcurrency = 4
	c := accounting.NewCollector(accounting.KindOfferMedia, accounting.Live{Layout: accounting.LayoutFilePerRecord}, cfg, cat, store, nil, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Usage.Bytes)
	assert.LessOrEqual(t, store.maxInflight.Load(), int32(4))
	assert.Greater(t, store.maxInflight.Load(), int32(1))
}

func TestCollectSharedFolderLookupsAreBounded(t *testing.T) {
	store := newBlobStub(true)
	store.sizeDelay = 5 * time.Millisecond
	for i := 0; i < 40; i++ {
		store.Put(fmt.Sprintf("tenants/t1/avatars/%d/%d.jpg", i%4, i), 1)
	}

	cfg := testConfig()
	cfg.LookupConcurrency = 4
	src := accounting.Live{Layout: accounting.LayoutSharedFolder, Path: "tenants/{tenant}/avatars"}
	c := accounting.NewCollector(accounting.KindContactAvatar, src, cfg, newCatalogStub(), store, nil, nil)
	res, err := c.Collect(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Usage.Bytes)
	assert.Equal(t, 40, res.Usage.Count)
	assert.LessOrEqual(t, store.maxInflight.Load(), int32(4))
	assert.Greater(t, store.maxInflight.Load(), int32(1))
}

func TestCollectLookupsStopOnDeadline(t *testing.T) {
	store := newBlobStub(false)
	store.sizeDelay = time.Second

	cat := newCatalogStub()
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k/%d", i)
		store.Put(key, 1)
		cat.refs[accounting.KindOfferMedia] = append(cat.refs[accounting.KindOfferMedia],
			accounting.Reference{RecordID: fmt.Sprint(i), Ref: key})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := accounting.NewCollector(accounting.KindOfferMedia, accounting.Live{Layout: accounting.LayoutFilePerRecord}, testConfig(), cat, store, nil, nil)
	_, err := c.Collect(ctx, "t1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
