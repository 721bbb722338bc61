package lead

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/lead-console/internal/domain"
	"github.com/ignite/lead-console/internal/pkg/logger"
)

// Service implements lead business logic. All public methods are safe for
// concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
}

// NewService creates a lead service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, accountID, id string) (*domain.Lead, error) {
	return s.repo.Get(ctx, accountID, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, accountID string, f ListFilter) ([]domain.Lead, int, error) {
	return s.repo.List(ctx, accountID, f)
}

// CreateInput holds the fields for creating a single lead manually.
type CreateInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Source   string `json:"source"`
	Channel  string `json:"channel"`
	FormName string `json:"form_name"`
	Stage    string `json:"stage"`
	Owner    string `json:"owner"`
	Labels   string `json:"labels"`
}

// Create validates and persists a manually entered lead. Unlike the bulk
// importer, this path fills a blank stage with the "Em análise" default.
func (s *Service) Create(ctx context.Context, accountID string, input CreateInput) (*domain.Lead, error) {
	if input.Name == "" {
		return nil, ErrNameMissing
	}

	stage := input.Stage
	if stage == "" {
		stage = domain.DefaultManualStage
	}

	now := time.Now().UTC()
	l := &domain.Lead{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		WhatsApp:   input.WhatsApp,
		Source:     input.Source,
		Channel:    input.Channel,
		FormName:   input.FormName,
		Stage:      stage,
		Owner:      input.Owner,
		Labels:     input.Labels,
		CreatedAt:  &now,
		ImportedAt: now,
	}

	id, err := s.repo.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	l.ID = id

	logger.Info("lead created",
		"lead_id", l.ID,
		"account_id", accountID,
		"email", l.Email,
		"stage", l.Stage,
	)
	return l, nil
}

// Update modifies mutable lead fields.
func (s *Service) Update(ctx context.Context, accountID, id string, u UpdateFields) error {
	return s.repo.Update(ctx, accountID, id, u)
}

// Delete removes a lead.
func (s *Service) Delete(ctx context.Context, accountID, id string) error {
	return s.repo.Delete(ctx, accountID, id)
}
