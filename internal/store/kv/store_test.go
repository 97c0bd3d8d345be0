package kv

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/store"
	"github.com/verbetes/verbete-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", nil)
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	tag := domain.Tag{Name: "frevo", Slug: "frevo"}
	require.NoError(t, s.CreateTag(ctx, &tag))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tags, err := s.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)

	next := domain.Tag{Name: "maracatu", Slug: "maracatu"}
	require.NoError(t, s.CreateTag(ctx, &next))
	assert.Greater(t, next.ID, tag.ID, "sequence survives reopen")
}

func TestEntity_Indexes(t *testing.T) {
	s := newTestStore(t)
	t.Cleanup(func() { s.Close() })
	e := newEntity[domain.Tag]("t:").
		withIndex("slug", func(v *domain.Tag) []string { return []string{v.Slug} })

	err := s.db.Update(func(txn *badger.Txn) error {
		return e.insert(txn, 1, &domain.Tag{ID: 1, Name: "Axé", Slug: "axe"})
	})
	require.NoError(t, err)

	err = s.db.Update(func(txn *badger.Txn) error {
		return e.insert(txn, 2, &domain.Tag{ID: 2, Name: "Axe", Slug: "axe"})
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	// Renaming the slug frees the old index entry.
	err = s.db.Update(func(txn *badger.Txn) error {
		return e.replace(txn, 1, &domain.Tag{ID: 1, Name: "Axé music", Slug: "axe-music"})
	})
	require.NoError(t, err)

	err = s.db.View(func(txn *badger.Txn) error {
		if _, err := e.lookup(txn, "slug", "axe"); !assert.ErrorIs(t, err, store.ErrNotFound) {
			return nil
		}
		got, err := e.lookup(txn, "slug", "axe-music")
		if err != nil {
			return err
		}
		assert.Equal(t, "Axé music", got.Name)
		return nil
	})
	require.NoError(t, err)

	err = s.db.Update(func(txn *badger.Txn) error {
		return e.remove(txn, 1)
	})
	require.NoError(t, err)

	err = s.db.View(func(txn *badger.Txn) error {
		count := 0
		err := e.each(txn, func(*domain.Tag) (bool, error) {
			count++
			return true, nil
		})
		assert.Zero(t, count, "index keys are not records")
		return err
	})
	require.NoError(t, err)
}
