package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines workflow definition persistence operations
type Repository interface {
	// Save persists a workflow definition and its steps
	Save(ctx context.Context, definition *Definition) error

	// FindByID retrieves a workflow definition by its identifier
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Definition, error)

	// FindByTenant retrieves workflow definitions for a tenant, optionally
	// restricted to templates
	FindByTenant(ctx context.Context, tenantID uuid.UUID, templatesOnly bool) ([]*Definition, error)

	// Delete removes a workflow definition
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
