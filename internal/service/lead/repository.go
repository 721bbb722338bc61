package lead

import (
	"context"

	"github.com/ignite/lead-console/internal/domain"
)

// Repository defines the data access contract for leads.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single lead. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, accountID, id string) (*domain.Lead, error)

	// List returns leads matching the filter, ordered by imported_at DESC,
	// plus the total count before pagination.
	List(ctx context.Context, accountID string, filter ListFilter) ([]domain.Lead, int, error)

	// Create inserts a new lead and returns its ID.
	Create(ctx context.Context, l *domain.Lead) (string, error)

	// Update modifies a lead. Only non-nil fields in the update are applied.
	Update(ctx context.Context, accountID, id string, u UpdateFields) error

	// Delete removes a lead.
	Delete(ctx context.Context, accountID, id string) error
}

// ListFilter controls pagination and filtering for lead lists.
type ListFilter struct {
	Stage    string
	FormName string
	Search   string
	Limit    int
	Offset   int
}

// UpdateFields holds the mutable fields for a lead update.
// Nil fields are not applied.
type UpdateFields struct {
	Name     *string
	Email    *string
	Phone    *string
	WhatsApp *string
	Stage    *string
	Owner    *string
	Labels   *string
	Channel  *string
	Source   *string
}
