// Package store holds the relational layout shared by the SQL backends:
// which table and columns back each storage kind, and the snapshot codec.
package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bignyap/studio-storage/accounting"
)

// KindTable names the columns that carry a kind's blob reference and its
// tracked byte count.
type KindTable struct {
	Table       string
	RefColumn   string
	BytesColumn string
	// Optional kinds only count records that actually have a blob.
	Optional bool
}

var KindTables = map[accounting.Kind]KindTable{
	accounting.KindCategoryMedia:  {Table: "catalog_categories", RefColumn: "media_url", BytesColumn: "media_bytes"},
	accounting.KindItemMedia:      {Table: "catalog_items", RefColumn: "media_url", BytesColumn: "media_bytes"},
	accounting.KindPostMedia:      {Table: "posts", RefColumn: "media_url", BytesColumn: "media_bytes"},
	accounting.KindPortfolioMedia: {Table: "portfolio_media", RefColumn: "url", BytesColumn: "size_bytes"},
	accounting.KindPackageCover:   {Table: "packages", RefColumn: "cover_url", BytesColumn: "cover_bytes", Optional: true},
	accounting.KindOfferMedia:     {Table: "offer_media", RefColumn: "url", BytesColumn: "size_bytes"},
	accounting.KindOfferCover:     {Table: "offers", RefColumn: "cover_url", BytesColumn: "cover_bytes", Optional: true},
	accounting.KindContactAvatar:  {Table: "contacts", RefColumn: "avatar_url", BytesColumn: "avatar_bytes", Optional: true},
}

// Placeholder renders the n-th (1-based) bind parameter for a dialect.
type Placeholder func(n int) string

func Dollar(n int) string { return fmt.Sprintf("$%d", n) }
func Question(int) string { return "?" }

func tableFor(kind accounting.Kind) (KindTable, error) {
	t, ok := KindTables[kind]
	if !ok {
		return KindTable{}, fmt.Errorf("%w: %q", accounting.ErrUnknownKind, kind)
	}
	return t, nil
}

func (t KindTable) filter(ph Placeholder) string {
	where := "tenant_id = " + ph(1)
	if t.Optional {
		where += fmt.Sprintf(" AND %s IS NOT NULL AND %s <> ''", t.RefColumn, t.RefColumn)
	}
	return where
}

func TrackedQuery(kind accounting.Kind, ph Placeholder) (string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT id, %s FROM %s WHERE %s ORDER BY id", t.BytesColumn, t.Table, t.filter(ph)), nil
}

func ReferencesQuery(kind accounting.Kind, ph Placeholder) (string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT id, COALESCE(%s, '') FROM %s WHERE %s ORDER BY id", t.RefColumn, t.Table, t.filter(ph)), nil
}

func SectionsQuery(ph Placeholder) string {
	return "SELECT id, name FROM catalog_sections WHERE tenant_id = " + ph(1) + " ORDER BY position, id"
}

func CategoriesQuery(ph Placeholder) string {
	return "SELECT id, COALESCE(section_id, '') FROM catalog_categories WHERE tenant_id = " + ph(1) + " ORDER BY position, id"
}

func ItemsQuery(ph Placeholder) string {
	return "SELECT id, COALESCE(category_id, '') FROM catalog_items WHERE tenant_id = " + ph(1) + " ORDER BY position, id"
}

// EncodeTotals serialises the JSON columns of the snapshot row.
func EncodeTotals(t accounting.Totals) (perKind, sections []byte, err error) {
	pk := t.PerKindBytes
	if pk == nil {
		pk = map[accounting.Kind]int64{}
	}
	if perKind, err = json.Marshal(pk); err != nil {
		return nil, nil, fmt.Errorf("failed to encode per-kind bytes: %w", err)
	}
	secs := t.Sections
	if secs == nil {
		secs = []accounting.SectionBreakdown{}
	}
	if sections, err = json.Marshal(secs); err != nil {
		return nil, nil, fmt.Errorf("failed to encode sections: %w", err)
	}
	return perKind, sections, nil
}

func DecodeTotals(perKind, sections []byte, snap *accounting.Snapshot) error {
	snap.PerKindBytes = map[accounting.Kind]int64{}
	if len(perKind) > 0 {
		if err := json.Unmarshal(perKind, &snap.PerKindBytes); err != nil {
			return fmt.Errorf("failed to decode per-kind bytes: %w", err)
		}
	}
	snap.Sections = []accounting.SectionBreakdown{}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &snap.Sections); err != nil {
			return fmt.Errorf("failed to decode sections: %w", err)
		}
	}
	return nil
}

// ColumnTypes are the dialect-specific types used by the DDL templates.
type ColumnTypes struct {
	ID        string
	Name      string
	Text      string
	BigInt    string
	Int       string
	JSON      string
	Timestamp string
}

var (
	PostgresTypes = ColumnTypes{ID: "TEXT", Name: "TEXT", Text: "TEXT", BigInt: "BIGINT", Int: "INTEGER", JSON: "JSONB", Timestamp: "TIMESTAMPTZ"}
	SQLiteTypes   = ColumnTypes{ID: "TEXT", Name: "TEXT", Text: "TEXT", BigInt: "INTEGER", Int: "INTEGER", JSON: "TEXT", Timestamp: "TIMESTAMP"}
	MySQLTypes    = ColumnTypes{ID: "VARCHAR(64)", Name: "VARCHAR(255)", Text: "TEXT", BigInt: "BIGINT", Int: "INT", JSON: "JSON", Timestamp: "DATETIME(6)"}
)

const tenantFK = "FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE"

// Schema returns the CREATE TABLE statements, parents first. Foreign keys
// are table constraints because MySQL ignores inline column references.
func Schema(ct ColumnTypes) []string {
	r := strings.NewReplacer(
		"{id}", ct.ID, "{name}", ct.Name, "{text}", ct.Text, "{bigint}", ct.BigInt,
		"{int}", ct.Int, "{json}", ct.JSON, "{ts}", ct.Timestamp, "{tenant_fk}", tenantFK,
	)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id {id} PRIMARY KEY,
			slug {id} NOT NULL UNIQUE,
			name {name} NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_sections (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			name {name} NOT NULL,
			position {int} NOT NULL DEFAULT 0,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_categories (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			section_id {id} NULL,
			position {int} NOT NULL DEFAULT 0,
			media_url {text} NULL,
			media_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_items (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			category_id {id} NULL,
			position {int} NOT NULL DEFAULT 0,
			media_url {text} NULL,
			media_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			media_url {text} NULL,
			media_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_media (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			url {text} NULL,
			size_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS packages (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			cover_url {text} NULL,
			cover_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS offers (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			cover_url {text} NULL,
			cover_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS offer_media (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			offer_id {id} NOT NULL,
			url {text} NULL,
			size_bytes {bigint} NULL,
			{tenant_fk},
			FOREIGN KEY (offer_id) REFERENCES offers(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id {id} PRIMARY KEY,
			tenant_id {id} NOT NULL,
			avatar_url {text} NULL,
			avatar_bytes {bigint} NULL,
			{tenant_fk}
		)`,
		`CREATE TABLE IF NOT EXISTS tenant_storage_usage (
			tenant_id {id} PRIMARY KEY,
			total_bytes {bigint} NOT NULL,
			per_kind {json} NOT NULL,
			sections {json} NOT NULL,
			quota_limit_bytes {bigint} NOT NULL,
			last_calculated_at {ts} NOT NULL,
			{tenant_fk}
		)`,
	}
	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}
