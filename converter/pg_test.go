package converter

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestInt8Conversions(t *testing.T) {
	n := int64(204800)
	assert.Equal(t, pgtype.Int8{Int64: n, Valid: true}, ToPgInt8Ptr(&n))
	assert.False(t, ToPgInt8Ptr(nil).Valid)

	assert.Nil(t, FromPgInt8Ptr(pgtype.Int8{}))
	assert.Equal(t, n, *FromPgInt8Ptr(ToPgInt8(n)))
	assert.Equal(t, int64(0), FromPgInt8OrZero(pgtype.Int8{}))
}

func TestTextConversions(t *testing.T) {
	s := "tenants/t1/a.jpg"
	assert.Equal(t, s, *FromPgText(ToPgText(&s)))
	assert.Nil(t, FromPgText(ToPgText(nil)))
	assert.Equal(t, "", FromPgTextOrEmpty(pgtype.Text{}))
}

func TestTimestamptzIsUTC(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)
	got := FromPgTimestamptz(ToPgTimestamptz(ts))
	assert.True(t, ts.Equal(got))
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, FromPgTimestamptz(pgtype.Timestamptz{}).IsZero())
}
