package event

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Service serves the audit trail to observers.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new event service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns committed events in commit order.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	if opts.AfterSeq < 0 || opts.Limit < 0 {
		return nil, ErrInvalidInput
	}
	if opts.Type != nil && !opts.Type.Valid() {
		return nil, ErrInvalidInput
	}
	if opts.Limit == 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	events, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}
