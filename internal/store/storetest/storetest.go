// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/query"
	"github.com/verbetes/verbete-server/internal/store"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run exercises the store contracts against open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"SubmissionRoundTrip", testSubmissionRoundTrip},
		{"SubmissionNotFound", testSubmissionNotFound},
		{"ListByOwner", testListByOwner},
		{"ListByStatus", testListByStatus},
		{"TransitionCompareAndSet", testTransitionCompareAndSet},
		{"PublishAndFilter", testPublishAndFilter},
		{"Republish", testRepublish},
		{"Pagination", testPagination},
		{"Taxonomy", testTaxonomy},
		{"Authors", testAuthors},
		{"Content", testContent},
		{"DeleteSubmission", testDeleteSubmission},
		{"ConcurrentUpdatesLastWriteWins", testConcurrentUpdates},
		{"ConcurrentUpdatesAndSubmit", testConcurrentUpdatesAndSubmit},
		{"ContentStaleSource", testContentStaleSource},
		{"UpdateAfterSubmit", testUpdateAfterSubmit},
		{"UpdateKeepsLifecycleFields", testUpdateKeepsLifecycleFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newSubmission(owner, docID string, at time.Time) *domain.Submission {
	return &domain.Submission{
		DocumentID:  docID,
		OwnerID:     owner,
		OwnerName:   "Owner " + owner,
		VerbeteType: domain.TypePerson,
		Status:      domain.StatusDraft,
		Title:       "Chiquinha Gonzaga",
		Fields:      map[string]string{"birth_date": "1847-10-17"},
		Content:     "Compositora.",
		ContentHTML: "<p>Compositora.</p>",
		TagIDs:      []int64{},
		CategoryIDs: []int64{},
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func mustCreate(t *testing.T, s store.Store, sub *domain.Submission) *domain.Submission {
	t.Helper()
	require.NoError(t, s.CreateSubmission(context.Background(), sub))
	require.NotZero(t, sub.ID)
	return sub
}

func testSubmissionRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-round-trip", base))

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.DocumentID, got.DocumentID)
	assert.Equal(t, domain.TypePerson, got.VerbeteType)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Equal(t, "1847-10-17", got.Fields["birth_date"])
	assert.Equal(t, "<p>Compositora.</p>", got.ContentHTML)
	assert.True(t, got.CreatedAt.Equal(base))
	assert.Nil(t, got.SubmittedAt)
	assert.Nil(t, got.ArticleID)

	byDoc, err := s.GetSubmissionByDocumentID(ctx, "doc-round-trip")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byDoc.ID)

	got.Title = "Francisca Edwiges Neves Gonzaga"
	got.TagIDs = []int64{3, 1}
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.UpdateSubmission(ctx, got))

	again, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Francisca Edwiges Neves Gonzaga", again.Title)
	assert.Equal(t, []int64{3, 1}, again.TagIDs)

	dup := newSubmission("u1", "doc-round-trip", base)
	assert.ErrorIs(t, s.CreateSubmission(ctx, dup), store.ErrAlreadyExists)
}

func testSubmissionNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetSubmission(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetSubmissionByDocumentID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	ghost := newSubmission("u1", "ghost", base)
	ghost.ID = 999
	assert.ErrorIs(t, s.UpdateSubmission(ctx, ghost), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteSubmission(ctx, 999), store.ErrNotFound)
}

func testListByOwner(t *testing.T, s store.Store) {
	ctx := context.Background()
	older := mustCreate(t, s, newSubmission("u1", "doc-a", base))
	newer := mustCreate(t, s, newSubmission("u1", "doc-b", base.Add(time.Minute)))
	mustCreate(t, s, newSubmission("u2", "doc-c", base))

	subs, err := s.ListSubmissionsByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, newer.ID, subs[0].ID)
	assert.Equal(t, older.ID, subs[1].ID)

	none, err := s.ListSubmissionsByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func testListByStatus(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, newSubmission("u1", "doc-a", base))
	b := mustCreate(t, s, newSubmission("u2", "doc-b", base))
	mustCreate(t, s, newSubmission("u3", "doc-c", base))

	for i, sub := range []*domain.Submission{b, a} {
		at := base.Add(time.Duration(i+1) * time.Hour)
		sub.Status = domain.StatusSubmitted
		sub.SubmittedAt = &at
		require.NoError(t, s.TransitionSubmission(ctx, sub, domain.StatusDraft, nil, nil))
	}

	queue, err := s.ListSubmissionsByStatus(ctx, domain.StatusSubmitted)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, b.ID, queue[0].ID)
	assert.Equal(t, a.ID, queue[1].ID)
}

func testTransitionCompareAndSet(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-cas", base))

	sub.Status = domain.StatusSubmitted
	change := &domain.StatusChange{From: domain.StatusDraft, To: domain.StatusSubmitted, ActorID: "u1", At: base}
	require.NoError(t, s.TransitionSubmission(ctx, sub, domain.StatusDraft, change, nil))
	assert.NotZero(t, change.ID)
	assert.Equal(t, sub.ID, change.SubmissionID)

	// A second writer that still believes the record is a draft loses.
	stale := sub.Clone()
	stale.Status = domain.StatusSubmitted
	err := s.TransitionSubmission(ctx, stale, domain.StatusDraft, &domain.StatusChange{At: base}, nil)
	assert.ErrorIs(t, err, store.ErrStaleState)

	history, err := s.ListStatusChanges(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusDraft, history[0].From)
	assert.Equal(t, domain.StatusSubmitted, history[0].To)
	assert.Equal(t, "u1", history[0].ActorID)

	ghost := newSubmission("u1", "ghost", base)
	ghost.ID = 4242
	err = s.TransitionSubmission(ctx, ghost, domain.StatusDraft, nil, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type fixture struct {
	music, literature domain.Category
	samba, choro      domain.Tag
	author            *domain.Author
}

func seedTaxonomy(t *testing.T, s store.Store) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		music:      domain.Category{Name: "Música", Slug: "musica", CreatedAt: base},
		literature: domain.Category{Name: "Literatura", Slug: "literatura", CreatedAt: base},
		samba:      domain.Tag{Name: "samba", Slug: "samba", CreatedAt: base},
		choro:      domain.Tag{Name: "choro", Slug: "choro", CreatedAt: base},
	}
	require.NoError(t, s.CreateCategory(ctx, &f.music))
	require.NoError(t, s.CreateCategory(ctx, &f.literature))
	require.NoError(t, s.CreateTag(ctx, &f.samba))
	require.NoError(t, s.CreateTag(ctx, &f.choro))

	var err error
	f.author, err = s.FindOrCreateAuthor(ctx, "u1", "Owner u1")
	require.NoError(t, err)
	return f
}

// publish drives a fresh submission to published with an article.
func publish(t *testing.T, s store.Store, docID, title string, typ domain.VerbeteType, at time.Time, tags []domain.Tag, cats []domain.Category, author *domain.Author) *domain.Article {
	t.Helper()
	ctx := context.Background()
	sub := newSubmission("u1", docID, at)
	sub.Title = title
	sub.VerbeteType = typ
	sub.Status = domain.StatusUnderReview
	mustCreate(t, s, sub)

	article := &domain.Article{
		DocumentID:   "art-" + docID,
		SubmissionID: sub.ID,
		VerbeteType:  typ,
		Title:        title,
		Slug:         "slug-" + docID,
		ContentHTML:  "<p>" + title + "</p>",
		Fields:       sub.Fields,
		Tags:         tags,
		Categories:   cats,
		Authors:      []domain.Author{*author},
		PublishedAt:  at,
		UpdatedAt:    at,
	}
	sub.Status = domain.StatusPublished
	change := &domain.StatusChange{From: domain.StatusUnderReview, To: domain.StatusPublished, ActorID: "rev", At: at}
	require.NoError(t, s.TransitionSubmission(ctx, sub, domain.StatusUnderReview, change, article))
	require.NotZero(t, article.ID)
	require.NotNil(t, sub.ArticleID)
	require.Equal(t, article.ID, *sub.ArticleID)
	return article
}

func ids(articles []*domain.Article) []int64 {
	out := make([]int64, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func testPublishAndFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seedTaxonomy(t, s)

	pixinguinha := publish(t, s, "d1", "Pixinguinha", domain.TypePerson, base,
		[]domain.Tag{f.choro}, []domain.Category{f.music}, f.author)
	donga := publish(t, s, "d2", "Donga", domain.TypePerson, base.Add(time.Hour),
		[]domain.Tag{f.samba}, []domain.Category{f.music}, f.author)
	memorias := publish(t, s, "d3", "Memórias Póstumas", domain.TypeWork, base.Add(2*time.Hour),
		nil, []domain.Category{f.literature}, f.author)

	page := query.Page{Page: 1, Limit: 10}
	catID := f.music.ID

	tests := []struct {
		name   string
		filter query.Filter
		want   []int64
	}{
		{"everything newest first", query.Filter{}, []int64{memorias.ID, donga.ID, pixinguinha.ID}},
		{"category", query.Filter{CategoryID: &catID}, []int64{donga.ID, pixinguinha.ID}},
		{"tags any of", query.Filter{TagIDs: []int64{f.samba.ID, f.choro.ID}}, []int64{donga.ID, pixinguinha.ID}},
		{"single tag", query.Filter{TagIDs: []int64{f.choro.ID}}, []int64{pixinguinha.ID}},
		{"title case insensitive", query.Filter{TitleContains: "PIXIN"}, []int64{pixinguinha.ID}},
		{"title accented", query.Filter{TitleContains: "póstumas"}, []int64{memorias.ID}},
		{"title like metacharacters are literal", query.Filter{TitleContains: "%"}, []int64{}},
		{"type", query.Filter{VerbeteType: domain.TypeWork}, []int64{memorias.ID}},
		{"conjunction", query.Filter{VerbeteType: domain.TypePerson, TagIDs: []int64{f.samba.ID}}, []int64{donga.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListArticles(ctx, tt.filter, page, query.ShapeFull)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), total)
		})
	}

	full, err := s.GetArticle(ctx, pixinguinha.ID, query.ShapeFull)
	require.NoError(t, err)
	assert.Equal(t, "art-d1", full.DocumentID)
	require.Len(t, full.Tags, 1)
	assert.Equal(t, "choro", full.Tags[0].Slug)
	require.Len(t, full.Categories, 1)
	assert.Equal(t, "musica", full.Categories[0].Slug)
	require.Len(t, full.Authors, 1)
	assert.Equal(t, "u1", full.Authors[0].UserID)

	bare, err := s.GetArticleByDocumentID(ctx, "art-d1", query.ShapeNone)
	require.NoError(t, err)
	assert.Equal(t, pixinguinha.ID, bare.ID)
	assert.Nil(t, bare.Tags)
	assert.Nil(t, bare.Authors)

	_, err = s.GetArticle(ctx, 9999, query.ShapeFull)
	assert.ErrorIs(t, err, store.ErrNotFound)

	batch, err := s.GetArticlesByIDs(ctx, []int64{donga.ID, 9999, pixinguinha.ID}, query.WithTags)
	require.NoError(t, err)
	assert.Equal(t, []int64{donga.ID, pixinguinha.ID}, ids(batch))

	taken, err := s.ArticleSlugTaken(ctx, "slug-d1", pixinguinha.SubmissionID)
	require.NoError(t, err)
	assert.False(t, taken, "own slug is not taken")
	taken, err = s.ArticleSlugTaken(ctx, "slug-d1", donga.SubmissionID)
	require.NoError(t, err)
	assert.True(t, taken)
}

func testRepublish(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seedTaxonomy(t, s)
	first := publish(t, s, "d1", "Cartola", domain.TypePerson, base, nil, nil, f.author)

	sub, err := s.GetSubmission(ctx, first.SubmissionID)
	require.NoError(t, err)

	again := &domain.Article{
		DocumentID:   "ignored",
		SubmissionID: sub.ID,
		VerbeteType:  domain.TypePerson,
		Title:        "Angenor de Oliveira",
		Slug:         "angenor",
		Tags:         []domain.Tag{f.samba},
		Authors:      []domain.Author{*f.author},
		PublishedAt:  base.Add(time.Hour),
		UpdatedAt:    base.Add(time.Hour),
	}
	require.NoError(t, s.TransitionSubmission(ctx, sub, domain.StatusPublished, nil, again))

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "art-d1", again.DocumentID)
	assert.True(t, again.PublishedAt.Equal(base))

	got, err := s.GetArticle(ctx, first.ID, query.ShapeFull)
	require.NoError(t, err)
	assert.Equal(t, "Angenor de Oliveira", got.Title)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, f.samba.ID, got.Tags[0].ID)
}

func testPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seedTaxonomy(t, s)
	for i := range 5 {
		publish(t, s, fmt.Sprintf("p%d", i), fmt.Sprintf("Verbete %d", i), domain.TypeConcept,
			base.Add(time.Duration(i)*time.Minute), nil, nil, f.author)
	}

	got, total, err := s.ListArticles(ctx, query.Filter{}, query.Page{Page: 2, Limit: 2}, query.ShapeNone)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, got, 2)
	assert.Equal(t, "Verbete 2", got[0].Title)
	assert.Equal(t, "Verbete 1", got[1].Title)

	got, total, err = s.ListArticles(ctx, query.Filter{}, query.Page{Page: 9, Limit: 2}, query.ShapeNone)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, got)
}

func testTaxonomy(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seedTaxonomy(t, s)

	dup := domain.Tag{Name: "Samba!", Slug: "samba", CreatedAt: base}
	assert.ErrorIs(t, s.CreateTag(ctx, &dup), store.ErrAlreadyExists)
	dupCat := domain.Category{Name: "Musica", Slug: "musica", CreatedAt: base}
	assert.ErrorIs(t, s.CreateCategory(ctx, &dupCat), store.ErrAlreadyExists)

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "choro", tags[0].Name)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Literatura", cats[0].Name)

	found, err := s.TagsByIDs(ctx, []int64{f.samba.ID, 999, f.choro.ID})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Less(t, found[0].ID, found[1].ID)

	foundCats, err := s.CategoriesByIDs(ctx, []int64{999})
	require.NoError(t, err)
	assert.Empty(t, foundCats)
}

func testAuthors(t *testing.T, s store.Store) {
	ctx := context.Background()

	a, err := s.FindOrCreateAuthor(ctx, "u9", "Lima Barreto")
	require.NoError(t, err)
	assert.NotZero(t, a.ID)

	b, err := s.FindOrCreateAuthor(ctx, "u9", "Afonso Henriques de Lima Barreto")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Lima Barreto", b.Name, "existing byline keeps its name")
}

func testContent(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seedTaxonomy(t, s)
	sub := mustCreate(t, s, newSubmission("u1", "doc-content", base))
	art := publish(t, s, "d1", "Noel Rosa", domain.TypePerson, base, nil, nil, f.author)

	items, err := s.ListContent(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, store.ContentSubmission, items[0].Kind)
	assert.Equal(t, "Compositora.", items[0].Source)
	assert.Equal(t, store.ContentArticle, items[2].Kind)
	assert.Equal(t, art.ID, items[2].ID)

	require.NoError(t, s.SetContentHTML(ctx, store.ContentSubmission, sub.ID, "Compositora.", "<p>Fixed</p>"))
	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>Fixed</p>", got.ContentHTML)
	assert.True(t, got.UpdatedAt.Equal(base), "maintenance leaves timestamps alone")

	require.NoError(t, s.SetContentHTML(ctx, store.ContentArticle, art.ID, items[2].Source, "<p>Noel</p>"))
	gotArt, err := s.GetArticle(ctx, art.ID, query.ShapeNone)
	require.NoError(t, err)
	assert.Equal(t, "<p>Noel</p>", gotArt.ContentHTML)

	assert.ErrorIs(t, s.SetContentHTML(ctx, store.ContentArticle, 9999, "", "x"), store.ErrNotFound)
	assert.ErrorIs(t, s.SetContentHTML(ctx, "bogus", 1, "", "x"), store.ErrInvalidInput)
}

func testContentStaleSource(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := seedTaxonomy(t, s)
	sub := mustCreate(t, s, newSubmission("u1", "doc-stale", base))
	art := publish(t, s, "d1", "Noel Rosa", domain.TypePerson, base, nil, nil, f.author)

	items, err := s.ListContent(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, sub.ID, items[0].ID)
	require.Equal(t, store.ContentArticle, items[2].Kind)

	// An edit lands between the snapshot and the write-back.
	edit, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	edit.Content = "Maestrina."
	edit.ContentHTML = "<p>Maestrina.</p>"
	require.NoError(t, s.UpdateSubmission(ctx, edit))

	err = s.SetContentHTML(ctx, store.ContentSubmission, sub.ID, items[0].Source, "<p>Compositora.</p>")
	assert.ErrorIs(t, err, store.ErrStaleState)

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maestrina.", got.Content)
	assert.Equal(t, "<p>Maestrina.</p>", got.ContentHTML)

	err = s.SetContentHTML(ctx, store.ContentArticle, art.ID, "<p>not what is stored</p>", "<p>x</p>")
	assert.ErrorIs(t, err, store.ErrStaleState)
	gotArt, err := s.GetArticle(ctx, art.ID, query.ShapeNone)
	require.NoError(t, err)
	assert.Equal(t, items[2].Source, gotArt.ContentHTML)
}

func testUpdateAfterSubmit(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-after-submit", base))

	// The editor read the draft before the submit landed.
	stale, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)

	submitted := sub.Clone()
	at := base.Add(time.Minute)
	submitted.Status = domain.StatusSubmitted
	submitted.SubmittedAt = &at
	require.NoError(t, s.TransitionSubmission(ctx, submitted, domain.StatusDraft,
		&domain.StatusChange{From: domain.StatusDraft, To: domain.StatusSubmitted, ActorID: "u1", At: at}, nil))

	stale.Title = "Edited after submit"
	assert.ErrorIs(t, s.UpdateSubmission(ctx, stale), store.ErrStaleState)

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, got.SubmittedAt.Equal(at))
	assert.Equal(t, "Chiquinha Gonzaga", got.Title)
}

func testUpdateKeepsLifecycleFields(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-lifecycle", base))

	edit := sub.Clone()
	at := base.Add(time.Hour)
	edit.Status = domain.StatusPublished
	edit.SubmittedAt = &at
	edit.Title = "Only this changes"
	require.NoError(t, s.UpdateSubmission(ctx, edit))

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Only this changes", got.Title)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Nil(t, got.SubmittedAt)
	assert.Nil(t, got.ArticleID)
}

func testDeleteSubmission(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-del", base))
	sub.Status = domain.StatusSubmitted
	require.NoError(t, s.TransitionSubmission(ctx, sub, domain.StatusDraft,
		&domain.StatusChange{From: domain.StatusDraft, To: domain.StatusSubmitted, ActorID: "u1", At: base}, nil))

	require.NoError(t, s.DeleteSubmission(ctx, sub.ID))

	_, err := s.GetSubmission(ctx, sub.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSubmissionByDocumentID(ctx, "doc-del")
	assert.ErrorIs(t, err, store.ErrNotFound)

	history, err := s.ListStatusChanges(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// The document id is free again.
	mustCreate(t, s, newSubmission("u1", "doc-del", base))
}

func testConcurrentUpdates(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-race", base))

	const writers = 8
	titles := make(map[string]bool, writers)
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		title := fmt.Sprintf("title %d", i)
		titles[title] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := sub.Clone()
			c.Title = title
			c.Content = title
			errs <- s.UpdateSubmission(ctx, c)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, titles[got.Title], "final title is one writer's value")
	assert.Equal(t, got.Title, got.Content, "no field-level interleaving")
}

func testConcurrentUpdatesAndSubmit(t *testing.T, s store.Store) {
	ctx := context.Background()
	sub := mustCreate(t, s, newSubmission("u1", "doc-race-submit", base))

	const writers = 8
	written := map[string]bool{sub.Content: true}
	var wg sync.WaitGroup
	start := make(chan struct{})
	updateErrs := make(chan error, writers)
	for i := range writers {
		content := fmt.Sprintf("content %d", i)
		written[content] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c := sub.Clone()
			c.Title = content
			c.Content = content
			updateErrs <- s.UpdateSubmission(ctx, c)
		}()
	}

	var submitErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		c := sub.Clone()
		at := base.Add(time.Minute)
		c.Status = domain.StatusSubmitted
		c.SubmittedAt = &at
		submitErr = s.TransitionSubmission(ctx, c, domain.StatusDraft,
			&domain.StatusChange{From: domain.StatusDraft, To: domain.StatusSubmitted, ActorID: "u1", At: at}, nil)
	}()

	close(start)
	wg.Wait()
	close(updateErrs)

	require.NoError(t, submitErr)
	for err := range updateErrs {
		if err != nil {
			assert.ErrorIs(t, err, store.ErrStaleState, "an edit may only lose to the submit")
		}
	}

	got, err := s.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, written[got.Content], "stored content %q is not one of the attempted writes", got.Content)
	if got.Content != sub.Content {
		assert.Equal(t, got.Content, got.Title, "no field-level interleaving")
	}
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	assert.NotNil(t, got.SubmittedAt)

	history, err := s.ListStatusChanges(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, got.Status, history[len(history)-1].To)
}
