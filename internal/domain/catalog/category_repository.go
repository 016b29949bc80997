package catalog

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindChildByName finds a category by case-insensitive name under parentID
	// (nil for roots). Returns shared.ErrNotFound when absent.
	FindChildByName(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (*Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error
}
