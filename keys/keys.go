// Package keys derives canonical cache keys and deletion glob patterns.
//
// Every key is a colon-joined sequence of segments:
//
//	<entityType>:id:<id>
//	<entityType>:field:<name>:<value>
//	<entityType>:list:[all|page:P:limit:L][:<filterKey>:<filterValue>...]
//	<entityType>:search:<query>:[all|page:P:limit:L]
//	<entityType>:count:[all][:<filterKey>:<filterValue>...]
//
// Filter maps are serialized in lexicographic key order, so two logically
// identical filter sets always yield the same key regardless of map
// iteration order. That determinism is what makes pattern-based bulk
// deletion (Pattern, ListPattern, ...) safe: a glob like "user:list:*" is
// guaranteed to cover every list variant ever written for the type.
//
// The functions are pure. Values are used verbatim; normalization (e.g.
// lower-casing an email before ByField) is the caller's responsibility.
package keys

import (
	"sort"
	"strconv"
	"strings"
)

// Sep joins key segments. Entity type names, field names and values must
// not contain it, or derived keys stop being unambiguous.
const Sep = ":"

// Page describes a pagination window. A nil *Page means "the whole
// collection" and derives a distinct key from any paginated request, even
// one with a zero page or limit: a full list and a page are different
// results and must never share a cache entry.
type Page struct {
	Page  int
	Limit int
}

func (p *Page) segment() string {
	if p == nil {
		return "all"
	}
	return "page" + Sep + strconv.Itoa(p.Page) + Sep + "limit" + Sep + strconv.Itoa(p.Limit)
}

// ByID derives the primary key for a single entity.
func ByID(entityType, id string) string {
	return entityType + Sep + "id" + Sep + id
}

// ByField derives the secondary key for a unique-field lookup.
func ByField(entityType, field, value string) string {
	return entityType + Sep + "field" + Sep + field + Sep + value
}

// List derives the key for a list query. Empty and nil filters produce the
// same key.
func List(entityType string, page *Page, filters map[string]string) string {
	var b strings.Builder
	b.WriteString(entityType)
	b.WriteString(Sep + "list" + Sep)
	b.WriteString(page.segment())
	writeFilters(&b, filters)
	return b.String()
}

// Search derives the key for a search query.
func Search(entityType, query string, page *Page) string {
	var b strings.Builder
	b.WriteString(entityType)
	b.WriteString(Sep + "search" + Sep)
	b.WriteString(query)
	b.WriteString(Sep)
	b.WriteString(page.segment())
	return b.String()
}

// Count derives the key for a count/aggregate query.
func Count(entityType string, filters map[string]string) string {
	var b strings.Builder
	b.WriteString(entityType)
	b.WriteString(Sep + "count" + Sep + "all")
	writeFilters(&b, filters)
	return b.String()
}

// Pattern returns a deletion glob covering sub-scope sub of an entity type.
// With the default sub "*" it matches every key of the type. Patterns are
// for bulk deletion only, never for get/set.
func Pattern(entityType, sub string) string {
	if sub == "" {
		sub = "*"
	}
	return entityType + Sep + sub
}

// ListPattern matches every list key of the type, any pagination, any
// filters.
func ListPattern(entityType string) string { return Pattern(entityType, "list"+Sep+"*") }

// SearchPattern matches every search key of the type.
func SearchPattern(entityType string) string { return Pattern(entityType, "search"+Sep+"*") }

// CountPattern matches every count/aggregate key of the type.
func CountPattern(entityType string) string { return Pattern(entityType, "count"+Sep+"*") }

func writeFilters(b *strings.Builder, filters map[string]string) {
	if len(filters) == 0 {
		return
	}
	names := make([]string, 0, len(filters))
	for k := range filters {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		b.WriteString(Sep)
		b.WriteString(k)
		b.WriteString(Sep)
		b.WriteString(filters[k])
	}
}
