package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerbeteType(t *testing.T) {
	got, ok := ParseVerbeteType("  Person ")
	assert.True(t, ok)
	assert.Equal(t, TypePerson, got)

	_, ok = ParseVerbeteType("planet")
	assert.False(t, ok)

	_, ok = ParseVerbeteType("")
	assert.False(t, ok)
}

func TestVerbeteTypes_ReturnsCopy(t *testing.T) {
	types := VerbeteTypes()
	require.Len(t, types, 7)

	types[0].Fields[0].Required = false

	spec, ok := SpecFor(TypePerson)
	require.True(t, ok)
	assert.True(t, spec.Fields[0].Required)
}

func TestTypeSpec_Required(t *testing.T) {
	person, _ := SpecFor(TypePerson)
	assert.Equal(t, []string{"birth_date"}, person.Required())

	concept, _ := SpecFor(TypeConcept)
	assert.Empty(t, concept.Required())
}

func TestParseVerbeteDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"1922", time.Date(1922, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"1922-07", time.Date(1922, 7, 1, 0, 0, 0, 0, time.UTC), true},
		{"1922-07-13", time.Date(1922, 7, 13, 0, 0, 0, 0, time.UTC), true},
		{"1922-13", time.Time{}, false},
		{"13/07/1922", time.Time{}, false},
		{"22", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseVerbeteDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got))
			}
		})
	}
}

func TestSubmission_CloneIsDeep(t *testing.T) {
	articleID := int64(4)
	orig := &Submission{
		ID:        1,
		OwnerID:   "user-1",
		Fields:    map[string]string{"birth_date": "1900"},
		TagIDs:    []int64{1, 2},
		ArticleID: &articleID,
	}

	c := orig.Clone()
	c.Fields["birth_date"] = "1901"
	c.TagIDs[0] = 99
	*c.ArticleID = 5

	assert.Equal(t, "1900", orig.Fields["birth_date"])
	assert.Equal(t, int64(1), orig.TagIDs[0])
	assert.Equal(t, int64(4), *orig.ArticleID)
	assert.True(t, orig.IsOwnedBy("user-1"))
	assert.False(t, orig.IsOwnedBy(""))
}

func TestArticle_Membership(t *testing.T) {
	a := &Article{
		Tags:       []Tag{{ID: 1}, {ID: 3}},
		Categories: []Category{{ID: 5}},
	}

	assert.True(t, a.HasCategory(5))
	assert.False(t, a.HasCategory(6))
	assert.True(t, a.HasAnyTag([]int64{2, 3}))
	assert.False(t, a.HasAnyTag([]int64{2, 4}))
	assert.False(t, a.HasAnyTag(nil))
	assert.Equal(t, []int64{1, 3}, a.TagIDs())
}
