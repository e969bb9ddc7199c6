package accounting_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/bignyap/studio-storage/logger/adapters/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSingleSection(t *testing.T) {
	h := accounting.Hierarchy{
		Sections:   []accounting.Section{{ID: "s1", Name: "Weddings"}},
		Categories: []accounting.CategoryLink{{ID: "c1", SectionID: "s1"}, {ID: "c2", SectionID: "s1"}},
		Items:      []accounting.ItemLink{{ID: "i1", CategoryID: "c1"}, {ID: "i2", CategoryID: "c1"}, {ID: "i3", CategoryID: "c1"}},
	}
	categories := []accounting.RecordUsage{{ID: "c1", Bytes: 120 * KiB}, {ID: "c2", Bytes: 80 * KiB}}
	items := []accounting.RecordUsage{{ID: "i1", Bytes: 10 * KiB}, {ID: "i2", Bytes: 5 * KiB}, {ID: "i3", Bytes: 0}}

	sections, skipped := accounting.NewAggregator(nil).Aggregate(context.Background(), categories, items, h)

	require.Len(t, sections, 1)
	assert.Zero(t, skipped)
	assert.Equal(t, accounting.SectionBreakdown{
		SectionID:     "s1",
		SectionName:   "Weddings",
		CategoryBytes: 200 * KiB,
		CategoryCount: 2,
		ItemBytes:     15 * KiB,
		ItemCount:     3,
		Subtotal:      215 * KiB,
	}, sections[0])
}

func TestAggregateSkipsUnresolvableLinks(t *testing.T) {
	h := accounting.Hierarchy{
		Sections: []accounting.Section{{ID: "s1", Name: "Portraits"}},
		Categories: []accounting.CategoryLink{
			{ID: "c1", SectionID: "s1"},
			{ID: "orphan", SectionID: ""},
			{ID: "dangling", SectionID: "gone"},
		},
		Items: []accounting.ItemLink{
			{ID: "i1", CategoryID: "c1"},
			{ID: "i2", CategoryID: "orphan"},
		},
	}
	categories := []accounting.RecordUsage{{ID: "c1", Bytes: 10}, {ID: "orphan", Bytes: 20}, {ID: "dangling", Bytes: 30}}
	items := []accounting.RecordUsage{{ID: "i1", Bytes: 1}, {ID: "i2", Bytes: 2}, {ID: "unknown", Bytes: 3}}
	log := mock.NewMockLogger()

	sections, skipped := accounting.NewAggregator(log).Aggregate(context.Background(), categories, items, h)

	assert.Equal(t, 4, skipped)
	require.Len(t, sections, 1)
	assert.Equal(t, int64(11), sections[0].Subtotal)
	assert.Len(t, log.Warnings(), 4)
}

func TestAggregateOrderIndependent(t *testing.T) {
	h := accounting.Hierarchy{
		Sections: []accounting.Section{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}},
	}
	var categories, items []accounting.RecordUsage
	for i, s := range []string{"a", "b", "c", "b", "a", "c"} {
		id := string(rune('p' + i))
		h.Categories = append(h.Categories, accounting.CategoryLink{ID: id, SectionID: s})
		categories = append(categories, accounting.RecordUsage{ID: id, Bytes: int64(100 * (i + 1))})
		for j := 0; j < 3; j++ {
			itemID := id + string(rune('0'+j))
			h.Items = append(h.Items, accounting.ItemLink{ID: itemID, CategoryID: id})
			items = append(items, accounting.RecordUsage{ID: itemID, Bytes: int64(i*10 + j)})
		}
	}

	agg := accounting.NewAggregator(nil)
	want, _ := agg.Aggregate(context.Background(), categories, items, h)

	byID := func(in []accounting.SectionBreakdown) map[string]accounting.SectionBreakdown {
		out := map[string]accounting.SectionBreakdown{}
		for _, s := range in {
			out[s.SectionID] = s
		}
		return out
	}

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 5; round++ {
		rng.Shuffle(len(categories), func(i, j int) { categories[i], categories[j] = categories[j], categories[i] })
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

		got, _ := agg.Aggregate(context.Background(), categories, items, h)
		assert.Equal(t, byID(want), byID(got))
		for _, s := range got {
			assert.Equal(t, s.CategoryBytes+s.ItemBytes, s.Subtotal)
		}
	}
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	h := accounting.Hierarchy{
		Sections:   []accounting.Section{{ID: "s1"}, {ID: "s2"}},
		Categories: []accounting.CategoryLink{{ID: "c1", SectionID: "s1"}, {ID: "c2", SectionID: "s2"}},
	}

	sections, _ := accounting.NewAggregator(nil).Aggregate(context.Background(),
		[]accounting.RecordUsage{{ID: "c2"}, {ID: "c1"}}, nil, h)

	require.Len(t, sections, 2)
	assert.Equal(t, "s2", sections[0].SectionID)
	assert.Equal(t, "s1", sections[1].SectionID)
}

func TestAggregateEmpty(t *testing.T) {
	sections, skipped := accounting.NewAggregator(nil).Aggregate(context.Background(), nil, nil, accounting.Hierarchy{})
	assert.NotNil(t, sections)
	assert.Empty(t, sections)
	assert.Zero(t, skipped)
}
