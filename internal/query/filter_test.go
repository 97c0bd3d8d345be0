package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
)

func mustParse(t *testing.T, raw string) url.Values {
	t.Helper()
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return v
}

func int64Ptr(v int64) *int64 { return &v }

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Filter
	}{
		{"empty", "", Filter{}},
		{"title", "title_contains=Machado", Filter{TitleContains: "Machado"}},
		{"title trimmed", "title_contains=%20Assis%20", Filter{TitleContains: "Assis"}},
		{"category", "categories.id=5", Filter{CategoryID: int64Ptr(5)}},
		{"category malformed", "categories.id=five", Filter{}},
		{"category non positive", "categories.id=0", Filter{}},
		{"tags list", "tags.id_in=1,2,3", Filter{TagIDs: []int64{1, 2, 3}}},
		{"tags malformed elements dropped", "tags.id_in=1,x,,3,-2", Filter{TagIDs: []int64{1, 3}}},
		{"tags duplicates removed", "tags.id_in=2,2,1", Filter{TagIDs: []int64{2, 1}}},
		{"tags all malformed", "tags.id_in=a,b", Filter{}},
		{"bracket aliases", "filters[title][$containsi]=rio&filters[categories][id][$eq]=7", Filter{TitleContains: "rio", CategoryID: int64Ptr(7)}},
		{"bracket tag array", "filters[tags][id][$in][0]=4&filters[tags][id][$in][1]=9", Filter{TagIDs: []int64{4, 9}}},
		{"type", "type=Person", Filter{VerbeteType: domain.TypePerson}},
		{"unknown type ignored", "type=planet", Filter{}},
		{"unknown params ignored", "sort=title&foo=bar", Filter{}},
		{"canonical wins over alias", "title_contains=a&filters[title][$containsi]=b", Filter{TitleContains: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(mustParse(t, tt.raw)))
		})
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	values := mustParse(t, "tags.id_in=1,2&title_contains=x&categories.id=3")
	snapshot := url.Values{}
	for k, v := range values {
		snapshot[k] = append([]string(nil), v...)
	}

	_ = Build(values)

	assert.Equal(t, snapshot, values)
}

func TestFilter_Matches(t *testing.T) {
	article := &domain.Article{
		Title:       "Machado de Assis",
		VerbeteType: domain.TypePerson,
		Tags:        []domain.Tag{{ID: 2}, {ID: 8}},
		Categories:  []domain.Category{{ID: 5}},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches all", Filter{}, true},
		{"title case insensitive", Filter{TitleContains: "assis"}, true},
		{"title miss", Filter{TitleContains: "Lispector"}, false},
		{"category hit", Filter{CategoryID: int64Ptr(5)}, true},
		{"category miss", Filter{CategoryID: int64Ptr(6)}, false},
		{"tags intersect", Filter{TagIDs: []int64{1, 2, 3}}, true},
		{"tags disjoint", Filter{TagIDs: []int64{1, 3}}, false},
		{"type hit", Filter{VerbeteType: domain.TypePerson}, true},
		{"type miss", Filter{VerbeteType: domain.TypeWork}, false},
		{"all constraints", Filter{TitleContains: "machado", CategoryID: int64Ptr(5), TagIDs: []int64{8}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(article))
		})
	}

	assert.False(t, Filter{}.Matches(nil))
}

func TestFilter_ForTypeCopies(t *testing.T) {
	f := Filter{TagIDs: []int64{1}}
	pinned := f.ForType(domain.TypePerson)
	pinned.TagIDs[0] = 9

	assert.Equal(t, int64(1), f.TagIDs[0])
	assert.Equal(t, domain.TypePerson, pinned.VerbeteType)
	assert.True(t, Filter{}.IsEmpty())
	assert.False(t, pinned.IsEmpty())
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		want Page
	}{
		{"", Page{Page: 1, Limit: 10}},
		{"page=3&limit=25", Page{Page: 3, Limit: 25}},
		{"page=0&limit=-1", Page{Page: 1, Limit: 10}},
		{"page=x&limit=y", Page{Page: 1, Limit: 10}},
		{"limit=1000", Page{Page: 1, Limit: MaxLimit}},
		{"pagination[page]=2&pagination[pageSize]=5", Page{Page: 2, Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePage(mustParse(t, tt.raw)))
		})
	}

	assert.Equal(t, 20, Page{Page: 3, Limit: 10}.Offset())
}

func TestShape(t *testing.T) {
	assert.Equal(t, ShapeFull, ParseShape(url.Values{}))
	assert.Equal(t, ShapeFull, ParseShape(mustParse(t, "populate=*")))
	assert.Equal(t, WithTags|WithAuthors, ParseShape(mustParse(t, "populate=tags,authors,bogus")))

	a := &domain.Article{
		Tags:       []domain.Tag{{ID: 1}},
		Categories: []domain.Category{{ID: 2}},
		Authors:    []domain.Author{{ID: 3}},
	}
	shaped := WithTags.Apply(a)

	assert.Len(t, shaped.Tags, 1)
	assert.Nil(t, shaped.Categories)
	assert.Nil(t, shaped.Authors)
	assert.Len(t, a.Authors, 1, "original untouched")
}
