package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/metrics"
	"github.com/verbetes/verbete-server/internal/normalize"
	"github.com/verbetes/verbete-server/internal/store"
)

// Fixer defaults.
const (
	DefaultFixConcurrency = 4
	DefaultFixItemTimeout = 10 * time.Second
)

// ErrFixRunning is returned by FixAll while another run holds the fixer.
var ErrFixRunning = domainerrors.Conflict("a content fix is already in progress")

// FixerOptions tunes a batch run.
type FixerOptions struct {
	Concurrency int
	ItemTimeout time.Duration
	// LockPath, when set, is a file lock held for the whole run so that
	// separate processes sharing a data directory do not overlap.
	LockPath string
}

// FixError describes one record the run could not normalize.
type FixError struct {
	ID    int64             `json:"id"`
	Kind  store.ContentKind `json:"kind"`
	Error string            `json:"error"`
}

// FixResult summarises a batch run.
type FixResult struct {
	RunID      string     `json:"run_id"`
	Total      int        `json:"total"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Errors     []FixError `json:"errors"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// ContentFixer re-normalizes every stored HTML body.
type ContentFixer struct {
	store     store.ContentRepository
	opts      FixerOptions
	logger    *slog.Logger
	normalize func(string) (string, error)
	running   sync.Mutex
}

// NewContentFixer creates a fixer. Zero options take the defaults.
func NewContentFixer(repo store.ContentRepository, opts FixerOptions, logger *slog.Logger) *ContentFixer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultFixConcurrency
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = DefaultFixItemTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentFixer{
		store:     repo,
		opts:      opts,
		logger:    logger,
		normalize: normalize.Strict,
	}
}

// FixAll normalizes every submission and article body, writing only the
// ones whose output changed. Records edited while the run is in flight are
// skipped. Item failures are collected in the result; an error is returned
// only when another run is active, the content cannot be listed or ctx ends.
func (f *ContentFixer) FixAll(ctx context.Context) (*FixResult, error) {
	if !f.running.TryLock() {
		return nil, ErrFixRunning
	}
	defer f.running.Unlock()

	if f.opts.LockPath != "" {
		lock := flock.New(f.opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire fix lock: %w", err)
		}
		if !locked {
			return nil, ErrFixRunning
		}
		defer func() { _ = lock.Unlock() }()
	}

	start := time.Now()
	result := &FixResult{
		RunID:     uuid.NewString(),
		Errors:    []FixError{},
		StartedAt: start.UTC(),
	}
	log := f.logger.With("run_id", result.RunID)

	items, err := f.store.ListContent(ctx)
	if err != nil {
		metrics.ObserveFixRun(0, true, time.Since(start))
		return nil, fmt.Errorf("list content: %w", err)
	}
	result.Total = len(items)
	log.Info("content fix started", "items", len(items), "concurrency", f.opts.Concurrency)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := f.fixOne(gctx, item)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				result.Errors = append(result.Errors, FixError{ID: item.ID, Kind: item.Kind, Error: err.Error()})
				outcome = metrics.ResultFailed
				log.Warn("content fix failed", "kind", item.Kind, "id", item.ID, "error", err)
			case outcome == metrics.ResultUpdated:
				result.Updated++
			case outcome == metrics.ResultSkipped:
				result.Skipped++
				log.Debug("content changed during fix, skipped", "kind", item.Kind, "id", item.ID)
			}
			metrics.ObserveFixItem(string(item.Kind), outcome)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(result.Errors, func(a, b FixError) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.ID, b.ID))
	})
	result.FinishedAt = time.Now().UTC()

	aborted := ctx.Err() != nil
	metrics.ObserveFixRun(result.Failed, aborted, time.Since(start))
	log.Info("content fix finished",
		"total", result.Total,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", time.Since(start),
	)

	if aborted {
		return result, ctx.Err()
	}
	return result, nil
}

// fixOne normalizes a single body under the per-item timeout and reports
// what happened to it as a metrics result.
func (f *ContentFixer) fixOne(ctx context.Context, item store.ContentItem) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.ItemTimeout)
	defer cancel()

	type output struct {
		html string
		err  error
	}
	done := make(chan output, 1)
	go func() {
		html, err := f.normalize(item.Source)
		done <- output{html, err}
	}()

	var out output
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("normalize: %w", ctx.Err())
	case out = <-done:
	}
	if out.err != nil {
		return "", out.err
	}
	if out.html == item.HTML {
		return metrics.ResultUnchanged, nil
	}

	err := f.store.SetContentHTML(ctx, item.Kind, item.ID, item.Source, out.html)
	switch {
	case errors.Is(err, store.ErrStaleState), errors.Is(err, store.ErrNotFound):
		return metrics.ResultSkipped, nil
	case err != nil:
		return "", fmt.Errorf("save: %w", err)
	}
	return metrics.ResultUpdated, nil
}
