package accounting

import (
	"context"

	"github.com/bignyap/studio-storage/logger/api"
)

// Aggregator folds category and item bytes into per-section breakdowns.
type Aggregator struct {
	log api.Logger
}

func NewAggregator(log api.Logger) *Aggregator {
	return &Aggregator{log: api.OrDefault(log).WithComponent("accounting.aggregator")}
}

// Aggregate attributes each category to its section and each item to the
// section of its category. Records whose links cannot be resolved are
// skipped with a warning and counted in the second return value. Sections
// are returned in the order they were first reached.
func (a *Aggregator) Aggregate(ctx context.Context, categories, items []RecordUsage, h Hierarchy) ([]SectionBreakdown, int) {
	sectionNames := make(map[string]string, len(h.Sections))
	for _, s := range h.Sections {
		sectionNames[s.ID] = s.Name
	}
	categorySection := make(map[string]string, len(h.Categories))
	for _, c := range h.Categories {
		categorySection[c.ID] = c.SectionID
	}
	itemCategory := make(map[string]string, len(h.Items))
	for _, it := range h.Items {
		itemCategory[it.ID] = it.CategoryID
	}

	var (
		out     []SectionBreakdown
		index   = map[string]int{}
		skipped int
	)
	section := func(id string) *SectionBreakdown {
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, SectionBreakdown{SectionID: id, SectionName: sectionNames[id]})
		}
		return &out[i]
	}
	resolve := func(categoryID string) (string, bool) {
		sectionID, ok := categorySection[categoryID]
		if !ok || sectionID == "" {
			return "", false
		}
		_, known := sectionNames[sectionID]
		return sectionID, known
	}

	for _, c := range categories {
		sectionID, ok := resolve(c.ID)
		if !ok {
			a.log.Warn(ctx, "category has no resolvable section; skipped",
				api.String("category_id", c.ID), api.Int64("bytes", c.Bytes))
			skipped++
			continue
		}
		s := section(sectionID)
		s.CategoryBytes += c.Bytes
		s.CategoryCount++
		s.Subtotal = s.CategoryBytes + s.ItemBytes
	}

	for _, it := range items {
		categoryID, ok := itemCategory[it.ID]
		if !ok {
			a.log.Warn(ctx, "item has no category; skipped",
				api.String("item_id", it.ID), api.Int64("bytes", it.Bytes))
			skipped++
			continue
		}
		sectionID, ok := resolve(categoryID)
		if !ok {
			a.log.Warn(ctx, "item category has no resolvable section; skipped",
				api.String("item_id", it.ID), api.String("category_id", categoryID), api.Int64("bytes", it.Bytes))
			skipped++
			continue
		}
		s := section(sectionID)
		s.ItemBytes += it.Bytes
		s.ItemCount++
		s.Subtotal = s.CategoryBytes + s.ItemBytes
	}

	if out == nil {
		out = []SectionBreakdown{}
	}
	return out, skipped
}
