// Package service holds the editorial workflow and catalog logic of the
// verbete server. Services raise domain errors from internal/errors; store
// failures are translated here so handlers never see store sentinels.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
	"github.com/verbetes/verbete-server/internal/store"
)

// storeError converts a store error into a domain error. what names the
// resource for not-found messages. Errors that are already domain errors
// pass through; anything unrecognised is logged and becomes INTERNAL.
func storeError(logger *slog.Logger, err error, what string) error {
	if err == nil {
		return nil
	}

	var de *domainerrors.Error
	if errors.As(err, &de) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFoundf("%s not found", what)
	case errors.Is(err, store.ErrStaleState):
		return domainerrors.Conflictf("%s was changed by another request, retry", what)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.Conflictf("%s already exists", what)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.BadRequest(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	logger.Error("store operation failed", "resource", what, "error", err)
	return domainerrors.Wrap(err, domainerrors.CodeInternal, "Internal server error")
}

// checkTaxonomy reports unknown tag or category ids as a validation error.
func checkTaxonomy(ctx context.Context, repo store.TaxonomyRepository, tagIDs, categoryIDs []int64) error {
	details := make(map[string]string)

	if len(tagIDs) > 0 {
		tags, err := repo.TagsByIDs(ctx, tagIDs)
		if err != nil {
			return fmt.Errorf("load tags: %w", err)
		}
		found := make([]int64, len(tags))
		for i, t := range tags {
			found[i] = t.ID
		}
		if missing := missingIDs(tagIDs, found); missing != "" {
			details["tag_ids"] = "unknown ids: " + missing
		}
	}

	if len(categoryIDs) > 0 {
		cats, err := repo.CategoriesByIDs(ctx, categoryIDs)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		found := make([]int64, len(cats))
		for i, c := range cats {
			found[i] = c.ID
		}
		if missing := missingIDs(categoryIDs, found); missing != "" {
			details["category_ids"] = "unknown ids: " + missing
		}
	}

	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("validation failed", details)
	}
	return nil
}

func missingIDs(want, found []int64) string {
	var missing []string
	for _, id := range want {
		if !slices.Contains(found, id) {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	return strings.Join(missing, ", ")
}

// uniqueIDs drops duplicates and non-positive ids, keeping first-seen order.
// A nil input stays nil so patches can tell "unchanged" from "cleared".
func uniqueIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// cleanFields trims values and drops empty ones.
func cleanFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// requireUser rejects anonymous principals.
func requireUser(p domain.Principal) error {
	if p.UserID == "" {
		return domainerrors.Unauthorized("authentication required")
	}
	return nil
}
