package mocks

import (
	"context"
	"math/big"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// LedgerRepository is a mock for project.Repository.
type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) Create(ctx context.Context, proj *project.Project, evt *event.Event) error {
	args := m.Called(ctx, proj, evt)
	return args.Error(0)
}

func (m *LedgerRepository) Get(ctx context.Context, id uint64) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) Count(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *LedgerRepository) List(ctx context.Context) ([]project.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) ListRange(ctx context.Context, start, end uint64) ([]project.Project, error) {
	args := m.Called(ctx, start, end)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) ClientProjectIDs(ctx context.Context, client string) ([]uint64, error) {
	args := m.Called(ctx, client)
	if ids, ok := args.Get(0).([]uint64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) FreelancerProjectIDs(ctx context.Context, freelancer string) ([]uint64, error) {
	args := m.Called(ctx, freelancer)
	if ids, ok := args.Get(0).([]uint64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) Apply(ctx context.Context, change *project.Change) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *LedgerRepository) Balance(ctx context.Context, identity string) (*big.Int, error) {
	args := m.Called(ctx, identity)
	if balance, ok := args.Get(0).(*big.Int); ok {
		return balance, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LedgerRepository) Search(ctx context.Context, query string, opts project.SearchOptions) ([]project.Project, error) {
	args := m.Called(ctx, query, opts)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]event.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Publisher is a mock for event.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, evt event.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}
