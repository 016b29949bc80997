package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxCategoryDepth is the maximum depth of category hierarchy
const MaxCategoryDepth = 5

// CategoryPathSeparator separates levels in a spreadsheet category path ("Apparel > Shirts")
const CategoryPathSeparator = ">"

// Category maps a human-readable category name to the tag sent to the
// remote catalog. Categories form a tree per owner.
type Category struct {
	shared.OwnedAggregateRoot
	Name     string
	Tag      string
	ParentID *uuid.UUID
	Path     string // materialized path of ids
	Level    int
}

// NewCategory creates a new root category
func NewCategory(ownerID uuid.UUID, name, tag string) (*Category, error) {
	if err := validateCategory(name, tag); err != nil {
		return nil, err
	}

	category := &Category{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		Name:               strings.TrimSpace(name),
		Tag:                strings.TrimSpace(tag),
	}
	category.Path = category.ID.String()
	return category, nil
}

// NewChildCategory creates a new child category under a parent
func NewChildCategory(name, tag string, parent *Category) (*Category, error) {
	if parent == nil {
		return nil, shared.NewDomainError("INVALID_PARENT", "Parent category is required")
	}
	if parent.Level >= MaxCategoryDepth-1 {
		return nil, shared.NewDomainError("MAX_DEPTH_EXCEEDED", fmt.Sprintf("Category depth cannot exceed %d levels", MaxCategoryDepth))
	}
	if err := validateCategory(name, tag); err != nil {
		return nil, err
	}

	category := &Category{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(parent.OwnerID),
		Name:               strings.TrimSpace(name),
		Tag:                strings.TrimSpace(tag),
		ParentID:           &parent.ID,
		Level:              parent.Level + 1,
	}
	category.Path = parent.Path + "/" + category.ID.String()
	return category, nil
}

// Rename updates the display name
func (c *Category) Rename(name string) error {
	if err := validateCategory(name, c.Tag); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(name)
	c.Touch(time.Now())
	return nil
}

// IsRoot returns true if this is a root category
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// SplitCategoryPath turns "Apparel > Shirts" into ["Apparel", "Shirts"]
func SplitCategoryPath(path string) []string {
	parts := strings.Split(path, CategoryPathSeparator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

func validateCategory(name, tag string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	if strings.Contains(name, CategoryPathSeparator) {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot contain '>'")
	}
	if strings.TrimSpace(tag) == "" {
		return shared.NewDomainError("INVALID_TAG", "Category tag cannot be empty")
	}
	return nil
}
