// Package kv is an embedded badger backend of the verbete store.
//
// Each record type is a JSON value under its own key prefix. Ids come
// from badger sequences; multi-record writes share one transaction and
// are retried on optimistic-concurrency conflicts.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/verbetes/verbete-server/internal/domain"
	"github.com/verbetes/verbete-server/internal/store"
)

const (
	maxTxnRetries = 16
	seqBandwidth  = 64
)

// articleRecord is the stored form of an article. Relations are kept
// as ids and resolved on read.
type articleRecord struct {
	domain.Article
	TagRefs      []int64 `json:"tag_refs"`
	CategoryRefs []int64 `json:"category_refs"`
	AuthorRefs   []int64 `json:"author_refs"`
}

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	seqs map[string]*badger.Sequence

	submissions *entity[domain.Submission]
	history     *entity[domain.StatusChange]
	articles    *entity[articleRecord]
	tags        *entity[domain.Tag]
	categories  *entity[domain.Category]
	authors     *entity[domain.Author]
}

var _ store.Store = (*Store)(nil)

// Open opens a badger database at path. An empty path keeps everything
// in memory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
		opts.CompactL0OnClose = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		db:     db,
		logger: logger,
		seqs:   make(map[string]*badger.Sequence),

		submissions: newEntity[domain.Submission]("sub:").
			withIndex("document", func(v *domain.Submission) []string { return []string{v.DocumentID} }),
		history: newEntity[domain.StatusChange]("hist:"),
		articles: newEntity[articleRecord]("art:").
			withIndex("document", func(v *articleRecord) []string { return []string{v.DocumentID} }).
			withIndex("submission", func(v *articleRecord) []string { return []string{strconv.FormatInt(v.SubmissionID, 10)} }).
			withIndex("slug", func(v *articleRecord) []string { return []string{v.Slug} }),
		tags: newEntity[domain.Tag]("tag:").
			withIndex("slug", func(v *domain.Tag) []string { return []string{v.Slug} }),
		categories: newEntity[domain.Category]("cat:").
			withIndex("slug", func(v *domain.Category) []string { return []string{v.Slug} }),
		authors: newEntity[domain.Author]("author:").
			withIndex("user", func(v *domain.Author) []string { return []string{v.UserID} }),
	}

	for _, name := range []string{"sub", "hist", "art", "tag", "cat", "author"} {
		seq, err := db.GetSequence([]byte("seq:"+name), seqBandwidth)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open sequence %s: %w", name, err)
		}
		s.seqs[name] = seq
	}

	logger.Info("badger database opened", "path", path, "in_memory", path == "")
	return s, nil
}

// Close releases sequences and closes the database.
func (s *Store) Close() error {
	var errs []error
	for name, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sequence %s: %w", name, err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// nextID allocates an id from the named sequence. Ids start at 1.
func (s *Store) nextID(name string) (int64, error) {
	n, err := s.seqs[name].Next()
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return int64(n) + 1, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent
// commit invalidated what fn read.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt >= maxTxnRetries {
			return err
		}
		s.logger.Debug("retrying conflicted transaction", "attempt", attempt+1)
	}
}

// view runs fn in a read-only transaction.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}
