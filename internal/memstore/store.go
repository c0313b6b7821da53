// Package memstore provides an in-memory ledger store for tests and
// ephemeral deployments. Records live in a dense slice indexed by id-1.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/repository"
)

var (
	_ project.Repository = (*Store)(nil)
	_ event.Repository   = (*Events)(nil)
)

// Store holds the whole ledger behind one RWMutex. Reads return copies.
type Store struct {
	mu sync.RWMutex

	projects     []project.Project
	byClient     map[string][]uint64
	byFreelancer map[string][]uint64
	indexed      map[uint64]bool
	transfers    map[uint64]project.Transfer
	balances     map[string]*big.Int
	events       []event.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		byClient:     make(map[string][]uint64),
		byFreelancer: make(map[string][]uint64),
		indexed:      make(map[uint64]bool),
		transfers:    make(map[uint64]project.Transfer),
		balances:     make(map[string]*big.Int),
	}
}

// Create allocates the next id and records the client index entry and
// the creation event.
func (s *Store) Create(_ context.Context, proj *project.Project, evt *event.Event) error {
	if proj == nil || evt == nil {
		return repository.ErrInvalidInput
	}
	if proj.Amount == nil || proj.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", repository.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if proj.CreatedAt.IsZero() {
		proj.CreatedAt = time.Now()
	}
	proj.ID = uint64(len(s.projects)) + 1
	s.projects = append(s.projects, proj.Clone())
	s.byClient[proj.Client] = append(s.byClient[proj.Client], proj.ID)

	evt.ProjectID = proj.ID
	s.appendEvent(evt)
	return nil
}

// Get returns a copy of the project with id.
func (s *Store) Get(_ context.Context, id uint64) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == 0 || id > uint64(len(s.projects)) {
		return nil, repository.ErrNotFound
	}
	proj := s.projects[id-1].Clone()
	return &proj, nil
}

// Count returns the number of allocated ids.
func (s *Store) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.projects)), nil
}

// List returns every project ordered by id.
func (s *Store) List(_ context.Context) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.projects), nil
}

// ListRange returns projects with start <= id <= end.
func (s *Store) ListRange(_ context.Context, start, end uint64) ([]project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := uint64(len(s.projects))
	if start == 0 {
		start = 1
	}
	if end > count {
		end = count
	}
	if start > end {
		return []project.Project{}, nil
	}
	return cloneAll(s.projects[start-1 : end]), nil
}

// ClientProjectIDs returns the ids funded by client in creation order.
func (s *Store) ClientProjectIDs(_ context.Context, client string) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64{}, s.byClient[client]...), nil
}

// FreelancerProjectIDs returns the ids accepted by freelancer in acceptance order.
func (s *Store) FreelancerProjectIDs(_ context.Context, freelancer string) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64{}, s.byFreelancer[freelancer]...), nil
}

// Apply commits change if the stored status still equals change.From.
// Every precondition is checked before anything is written, so a failed
// Apply leaves the store untouched.
func (s *Store) Apply(_ context.Context, change *project.Change) error {
	if change == nil {
		return repository.ErrInvalidInput
	}
	id := change.Project.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || id > uint64(len(s.projects)) {
		return repository.ErrNotFound
	}
	stored := s.projects[id-1]
	if stored.Status != change.From {
		return fmt.Errorf("%w: project %d is %s, expected %s", repository.ErrConflict, id, stored.Status, change.From)
	}
	if change.IndexFreelancer {
		if change.Project.Freelancer == "" {
			return fmt.Errorf("%w: freelancer required", repository.ErrInvalidInput)
		}
		if s.indexed[id] {
			return fmt.Errorf("%w: project %d already has a freelancer", repository.ErrConflict, id)
		}
	}
	if t := change.Transfer; t != nil {
		if t.Recipient == "" || t.Amount == nil || t.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: invalid transfer", repository.ErrInvalidInput)
		}
		if _, paid := s.transfers[id]; paid {
			return fmt.Errorf("%w: project %d already paid out", repository.ErrConflict, id)
		}
	}

	s.projects[id-1] = change.Project.Clone()
	if change.IndexFreelancer {
		s.indexed[id] = true
		s.byFreelancer[change.Project.Freelancer] = append(s.byFreelancer[change.Project.Freelancer], id)
	}
	if t := change.Transfer; t != nil {
		transfer := *t
		transfer.ProjectID = id
		transfer.Amount = new(big.Int).Set(t.Amount)
		if transfer.CreatedAt.IsZero() {
			transfer.CreatedAt = time.Now()
		}
		s.transfers[id] = transfer

		balance, ok := s.balances[transfer.Recipient]
		if !ok {
			balance = new(big.Int)
			s.balances[transfer.Recipient] = balance
		}
		balance.Add(balance, transfer.Amount)
	}

	change.Event.ProjectID = id
	s.appendEvent(&change.Event)
	return nil
}

// Balance returns the value released to identity. Unknown identities
// have a zero balance.
func (s *Store) Balance(_ context.Context, identity string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if balance, ok := s.balances[identity]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

// Search matches descriptions by case-insensitive substring.
func (s *Store) Search(_ context.Context, query string, opts project.SearchOptions) ([]project.Project, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, repository.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []project.Project{}
	skipped := 0
	for _, proj := range s.projects {
		if !strings.Contains(strings.ToLower(proj.Description), needle) {
			continue
		}
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, proj.Status) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		results = append(results, proj.Clone())
		if opts.Limit > 0 && len(results) == opts.Limit {
			break
		}
	}
	return results, nil
}

// Events reads the audit events committed by a Store.
type Events struct {
	s *Store
}

// Events returns the store's event view.
func (s *Store) Events() *Events {
	return &Events{s: s}
}

// List returns committed events in commit order.
func (e *Events) List(_ context.Context, opts event.ListOptions) ([]event.Event, error) {
	s := e.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []event.Event{}
	for _, evt := range s.events {
		if evt.Seq <= opts.AfterSeq {
			continue
		}
		if opts.ProjectID != nil && evt.ProjectID != *opts.ProjectID {
			continue
		}
		if opts.Type != nil && evt.Type != *opts.Type {
			continue
		}
		evt.Details = maps.Clone(evt.Details)
		results = append(results, evt)
		if opts.Limit > 0 && len(results) == opts.Limit {
			break
		}
	}
	return results, nil
}

func (s *Store) appendEvent(evt *event.Event) {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	evt.Seq = int64(len(s.events)) + 1
	stored := *evt
	stored.Details = maps.Clone(evt.Details)
	s.events = append(s.events, stored)
}

func cloneAll(projects []project.Project) []project.Project {
	out := make([]project.Project, len(projects))
	for i, proj := range projects {
		out[i] = proj.Clone()
	}
	return out
}
