// Package query turns raw request parameters into typed article filters.
//
// Parsing is permissive: unknown parameters are ignored, malformed scalar
// values drop their filter, and malformed list elements are skipped. The
// input values are never modified.
package query

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/verbetes/verbete-server/internal/domain"
)

// Parameter names. The bracketed forms are the filter syntax the existing
// front-ends already send.
const (
	ParamTitleContains = "title_contains"
	ParamCategoryID    = "categories.id"
	ParamTagIDsIn      = "tags.id_in"
	ParamType          = "type"

	aliasTitleContainsI = "filters[title][$containsi]"
	aliasTitleContains  = "filters[title][$contains]"
	aliasCategoryEq     = "filters[categories][id][$eq]"
	aliasCategory       = "filters[categories][id]"
	aliasTagsIn         = "filters[tags][id][$in]"
	aliasTypeEq         = "filters[verbete_type][$eq]"
)

// Filter is a declarative description of which articles to return.
// Zero values mean "no constraint".
type Filter struct {
	TitleContains string             `json:"title_contains,omitempty"`
	CategoryID    *int64             `json:"category_id,omitempty"`
	TagIDs        []int64            `json:"tag_ids,omitempty"`
	VerbeteType   domain.VerbeteType `json:"verbete_type,omitempty"`
}

// Build parses values into a Filter.
func Build(values url.Values) Filter {
	var f Filter

	if title, ok := first(values, ParamTitleContains, aliasTitleContainsI, aliasTitleContains); ok {
		f.TitleContains = strings.TrimSpace(title)
	}

	if raw, ok := first(values, ParamCategoryID, aliasCategoryEq, aliasCategory); ok {
		if id, ok := parseID(raw); ok {
			f.CategoryID = &id
		}
	}

	f.TagIDs = tagIDs(values)

	if raw, ok := first(values, ParamType, aliasTypeEq); ok {
		if t, ok := domain.ParseVerbeteType(raw); ok {
			f.VerbeteType = t
		}
	}

	return f
}

// ForType returns a copy of f pinned to t.
func (f Filter) ForType(t domain.VerbeteType) Filter {
	f.TagIDs = slices.Clone(f.TagIDs)
	f.VerbeteType = t
	return f
}

// IsEmpty reports whether f constrains nothing.
func (f Filter) IsEmpty() bool {
	return f.TitleContains == "" && f.CategoryID == nil && len(f.TagIDs) == 0 && f.VerbeteType == ""
}

// Matches reports whether a satisfies every constraint in f.
// Title matching is a case-insensitive substring test; tag matching is set
// intersection.
func (f Filter) Matches(a *domain.Article) bool {
	if a == nil {
		return false
	}
	if f.VerbeteType != "" && a.VerbeteType != f.VerbeteType {
		return false
	}
	if f.TitleContains != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(f.TitleContains)) {
		return false
	}
	if f.CategoryID != nil && !a.HasCategory(*f.CategoryID) {
		return false
	}
	if len(f.TagIDs) > 0 && !a.HasAnyTag(f.TagIDs) {
		return false
	}
	return true
}

// first returns the first non-empty value found under any of keys.
func first(values url.Values, keys ...string) (string, bool) {
	for _, k := range keys {
		for _, v := range values[k] {
			if strings.TrimSpace(v) != "" {
				return v, true
			}
		}
	}
	return "", false
}

// tagIDs collects ids from the comma list form and from the bracketed
// array form (filters[tags][id][$in][0]=1&...). Duplicates are removed,
// first occurrence wins.
func tagIDs(values url.Values) []int64 {
	var raw []string
	for _, v := range values[ParamTagIDsIn] {
		raw = append(raw, strings.Split(v, ",")...)
	}

	var bracketKeys []string
	for k := range values {
		if strings.HasPrefix(k, aliasTagsIn) {
			bracketKeys = append(bracketKeys, k)
		}
	}
	slices.Sort(bracketKeys)
	for _, k := range bracketKeys {
		for _, v := range values[k] {
			raw = append(raw, strings.Split(v, ",")...)
		}
	}

	var ids []int64
	for _, s := range raw {
		id, ok := parseID(s)
		if !ok || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
