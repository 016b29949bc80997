package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryResolver translates spreadsheet category paths into remote tags
type CategoryResolver interface {
	Resolve(ctx context.Context, ownerID uuid.UUID, paths []string) ([]string, error)
}

// TreeCategoryResolver walks the owner's category tree level by level.
// Every matched level contributes its tag, so "Apparel > Shirts" yields the
// tags of both Apparel and Shirts. Unknown names end the walk for that path.
type TreeCategoryResolver struct {
	repo   catalog.CategoryRepository
	logger *zap.Logger
}

// NewTreeCategoryResolver creates a resolver backed by repo
func NewTreeCategoryResolver(repo catalog.CategoryRepository, logger *zap.Logger) *TreeCategoryResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeCategoryResolver{repo: repo, logger: logger}
}

// Resolve returns distinct tags in first-seen order
func (r *TreeCategoryResolver) Resolve(ctx context.Context, ownerID uuid.UUID, paths []string) ([]string, error) {
	tags := make([]string, 0, len(paths))
	seen := make(map[string]struct{})

	for _, path := range paths {
		var parentID *uuid.UUID
		for _, name := range catalog.SplitCategoryPath(path) {
			category, err := r.repo.FindChildByName(ctx, ownerID, parentID, name)
			if errors.Is(err, shared.ErrNotFound) {
				r.logger.Warn("category not found, skipping remainder of path",
					zap.String("owner_id", ownerID.String()),
					zap.String("path", path),
					zap.String("name", name))
				break
			}
			if err != nil {
				return nil, fmt.Errorf("resolve category %q: %w", path, err)
			}
			if _, dup := seen[category.Tag]; !dup {
				seen[category.Tag] = struct{}{}
				tags = append(tags, category.Tag)
			}
			parentID = &category.ID
		}
	}

	return tags, nil
}

// splitCategories splits a Categories cell into paths
func splitCategories(cell string) []string {
	parts := strings.Split(cell, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
