package accounting

import "time"

// Usage is the transient result of measuring one kind or one blob prefix.
type Usage struct {
	Bytes int64 `json:"bytes"`
	Count int   `json:"count"`
	// Failures counts recoverable errors absorbed while measuring; each
	// one contributed zero bytes.
	Failures int `json:"failures"`
	// Untracked counts records whose tracked byte field was null.
	Untracked int `json:"untracked"`
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		Bytes:     u.Bytes + o.Bytes,
		Count:     u.Count + o.Count,
		Failures:  u.Failures + o.Failures,
		Untracked: u.Untracked + o.Untracked,
	}
}

// RecordUsage attributes bytes to a single content record.
type RecordUsage struct {
	ID    string `json:"id"`
	Bytes int64  `json:"bytes"`
}

// Result is a collector's output for one kind.
type Result struct {
	Kind    Kind
	Usage   Usage
	Records []RecordUsage
}

type Tenant struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

// TrackedRecord is a content record with its upload-time byte count.
// Bytes is nil for records stored before tracking existed.
type TrackedRecord struct {
	ID    string
	Bytes *int64
}

// Reference points a record at its blob: an object key or a public URL.
type Reference struct {
	RecordID string
	Ref      string
}

type Section struct {
	ID   string
	Name string
}

type CategoryLink struct {
	ID        string
	SectionID string
}

type ItemLink struct {
	ID         string
	CategoryID string
}

// Hierarchy is the section > category > item structure of a catalog.
type Hierarchy struct {
	Sections   []Section
	Categories []CategoryLink
	Items      []ItemLink
}

// SectionBreakdown holds the bytes attributed to one catalog section.
// Subtotal always equals CategoryBytes + ItemBytes.
type SectionBreakdown struct {
	SectionID     string `json:"sectionId"`
	SectionName   string `json:"sectionName"`
	CategoryBytes int64  `json:"categoryBytes"`
	CategoryCount int    `json:"categoryCount"`
	ItemBytes     int64  `json:"itemBytes"`
	ItemCount     int    `json:"itemCount"`
	Subtotal      int64  `json:"subtotal"`
}

// Totals is what a recomputation hands to the snapshot writer.
type Totals struct {
	TotalBytes   int64
	PerKindBytes map[Kind]int64
	Sections     []SectionBreakdown
}

// NewTotals derives TotalBytes from the per-kind figures.
func NewTotals(perKind map[Kind]int64, sections []SectionBreakdown) Totals {
	var total int64
	for _, b := range perKind {
		total += b
	}
	if sections == nil {
		sections = []SectionBreakdown{}
	}
	return Totals{TotalBytes: total, PerKindBytes: perKind, Sections: sections}
}

// Snapshot is the persisted usage row for one tenant.
type Snapshot struct {
	TenantID         string             `json:"tenantId"`
	TotalBytes       int64              `json:"totalBytes"`
	PerKindBytes     map[Kind]int64     `json:"perKindBytes"`
	Sections         []SectionBreakdown `json:"sections"`
	QuotaLimitBytes  int64              `json:"quotaLimitBytes"`
	LastCalculatedAt time.Time          `json:"lastCalculatedAt"`
}

// Report is returned by a recomputation.
type Report struct {
	TenantID         string             `json:"tenantId"`
	Slug             string             `json:"slug"`
	TotalBytes       int64              `json:"totalBytes"`
	PerKindBytes     map[Kind]int64     `json:"perKindBytes"`
	Sections         []SectionBreakdown `json:"sections"`
	QuotaLimitBytes  int64              `json:"quotaLimitBytes"`
	LastCalculatedAt time.Time          `json:"lastCalculatedAt"`
	// Degraded counts absorbed failures; a non-zero value means
	// TotalBytes may be an undercount.
	Degraded  int `json:"degraded"`
	Untracked int `json:"untracked"`
}

// SweepResult summarises a RecomputeAll run.
type SweepResult struct {
	Tenants   int `json:"tenants"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
