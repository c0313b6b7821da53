package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rpggio/proofchain/internal/domain/project"

// Service is the transition engine and read surface of the ledger.
// Mutations are serialized: each one commits or rolls back before the
// next starts. Reads never wait on writes.
type Service struct {
	repo      Repository
	publisher event.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	writeMu sync.Mutex
}

// NewService creates a new project service. publisher and logger may be nil.
func NewService(repo Repository, publisher event.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
}

// CreateRequest defines project creation inputs. Amount is the value the
// caller attaches and the ledger takes into custody.
type CreateRequest struct {
	Description string
	Deadline    uint64
	Amount      *big.Int
}

// Create funds a new project owned by caller.
func (s *Service) Create(ctx context.Context, caller string, req CreateRequest) (*Project, error) {
	ctx, span := s.tracer.Start(ctx, "project.create")
	defer span.End()

	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, s.fail(span, ErrUnauthorized)
	}
	if err := ValidateCreateInput(req); err != nil {
		return nil, s.fail(span, err)
	}

	proj := &Project{
		Description: req.Description,
		Client:      caller,
		Amount:      new(big.Int).Set(req.Amount),
		Deadline:    req.Deadline,
		Status:      StatusCreated,
		CreatedAt:   s.now(),
	}
	evt := s.newEvent(event.TypeProjectCreated, caller, map[string]string{
		event.DetailClient: caller,
		event.DetailAmount: proj.Amount.String(),
	})

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Create(ctx, proj, &evt); err != nil {
		return nil, s.fail(span, fmt.Errorf("creating project: %w", err))
	}

	span.SetAttributes(attribute.Int64("project.id", int64(proj.ID)))
	s.committed(ctx, "project created", proj, evt)
	return proj, nil
}

// Accept assigns caller as the project's freelancer.
func (s *Service) Accept(ctx context.Context, caller string, id uint64) (*Project, error) {
	return s.transition(ctx, "project.accept", caller, id, func(current Project, caller string) (*Change, error) {
		if err := CheckAccept(current, caller); err != nil {
			return nil, err
		}
		updated := current
		updated.Freelancer = caller
		updated.Status = StatusAccepted
		return &Change{
			Project:         updated,
			From:            current.Status,
			IndexFreelancer: true,
			Event: s.newEvent(event.TypeProjectAccepted, caller, map[string]string{
				event.DetailFreelancer: caller,
			}),
		}, nil
	})
}

// SubmitWork records the deliverable reference. The reference is opaque.
func (s *Service) SubmitWork(ctx context.Context, caller string, id uint64, deliverableHash string) (*Project, error) {
	return s.transition(ctx, "project.submit_work", caller, id, func(current Project, caller string) (*Change, error) {
		if err := CheckSubmit(current, caller, deliverableHash); err != nil {
			return nil, err
		}
		updated := current
		updated.DeliverableHash = deliverableHash
		updated.Status = StatusWorkSubmitted
		return &Change{
			Project: updated,
			From:    current.Status,
			Event: s.newEvent(event.TypeWorkSubmitted, caller, map[string]string{
				event.DetailDeliverableHash: deliverableHash,
			}),
		}, nil
	})
}

// ApproveWork releases custody to the freelancer. The status flip and the
// transfer commit together or not at all.
func (s *Service) ApproveWork(ctx context.Context, caller string, id uint64) (*Project, error) {
	return s.transition(ctx, "project.approve_work", caller, id, func(current Project, caller string) (*Change, error) {
		if err := CheckApprove(current, caller); err != nil {
			return nil, err
		}
		updated := current
		updated.Status = StatusApproved
		return &Change{
			Project: updated,
			From:    current.Status,
			Transfer: &Transfer{
				ProjectID: current.ID,
				Recipient: current.Freelancer,
				Amount:    new(big.Int).Set(current.Amount),
				CreatedAt: s.now(),
			},
			Event: s.newEvent(event.TypeWorkApproved, caller, nil),
		}, nil
	})
}

// RaiseDispute freezes the project. Disputed has no outgoing transition.
func (s *Service) RaiseDispute(ctx context.Context, caller string, id uint64) (*Project, error) {
	return s.transition(ctx, "project.raise_dispute", caller, id, func(current Project, caller string) (*Change, error) {
		if err := CheckDispute(current, caller); err != nil {
			return nil, err
		}
		updated := current
		updated.Status = StatusDisputed
		return &Change{
			Project: updated,
			From:    current.Status,
			Event:   s.newEvent(event.TypeDisputeRaised, caller, nil),
		}, nil
	})
}

func (s *Service) transition(ctx context.Context, op, caller string, id uint64, plan func(current Project, caller string) (*Change, error)) (*Project, error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("project.id", int64(id))))
	defer span.End()

	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, s.fail(span, ErrUnauthorized)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, s.fail(span, err)
	}

	change, err := plan(*current, caller)
	if err != nil {
		return nil, s.fail(span, err)
	}
	change.Event.ProjectID = id

	if err := s.repo.Apply(ctx, change); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, s.fail(span, ErrProjectNotFound)
		case errors.Is(err, repository.ErrConflict):
			return nil, s.fail(span, fmt.Errorf("%w: %v", ErrInvalidState, err))
		}
		return nil, s.fail(span, fmt.Errorf("applying %s: %w", op, err))
	}

	updated := change.Project
	s.committed(ctx, "project transitioned", &updated, change.Event)
	return &updated, nil
}

// Get returns a project by ID.
func (s *Service) Get(ctx context.Context, id uint64) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// Exists reports whether a project with id has been created.
func (s *Service) Exists(ctx context.Context, id uint64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	count, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	return id <= count, nil
}

// Count returns the number of projects ever created.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting projects: %w", err)
	}
	return count, nil
}

// List returns every project ordered by id.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// AllIDs returns every allocated id in order.
func (s *Service) AllIDs(ctx context.Context) ([]uint64, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, count)
	for id := uint64(1); id <= count; id++ {
		ids = append(ids, id)
	}
	return ids, nil
}

// ListRange returns projects with start <= id <= end. Ids past the
// allocated span are omitted rather than reported missing.
func (s *Service) ListRange(ctx context.Context, start, end uint64) ([]Project, error) {
	if start == 0 {
		start = 1
	}
	if start > end {
		return []Project{}, nil
	}
	projects, err := s.repo.ListRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing project range: %w", err)
	}
	return projects, nil
}

// GetMany returns projects in the order requested. Any unknown id fails
// the whole read.
func (s *Service) GetMany(ctx context.Context, ids []uint64) ([]Project, error) {
	projects := make([]Project, 0, len(ids))
	for _, id := range ids {
		proj, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *proj)
	}
	return projects, nil
}

// ClientProjectIDs returns the ids funded by client in creation order.
func (s *Service) ClientProjectIDs(ctx context.Context, client string) ([]uint64, error) {
	ids, err := s.repo.ClientProjectIDs(ctx, strings.TrimSpace(client))
	if err != nil {
		return nil, fmt.Errorf("listing client project ids: %w", err)
	}
	return ids, nil
}

// FreelancerProjectIDs returns the ids accepted by freelancer in acceptance order.
func (s *Service) FreelancerProjectIDs(ctx context.Context, freelancer string) ([]uint64, error) {
	ids, err := s.repo.FreelancerProjectIDs(ctx, strings.TrimSpace(freelancer))
	if err != nil {
		return nil, fmt.Errorf("listing freelancer project ids: %w", err)
	}
	return ids, nil
}

// ClientProjects returns the projects funded by client.
func (s *Service) ClientProjects(ctx context.Context, client string) ([]Project, error) {
	ids, err := s.ClientProjectIDs(ctx, client)
	if err != nil {
		return nil, err
	}
	return s.GetMany(ctx, ids)
}

// FreelancerProjects returns the projects accepted by freelancer.
func (s *Service) FreelancerProjects(ctx context.Context, freelancer string) ([]Project, error) {
	ids, err := s.FreelancerProjectIDs(ctx, freelancer)
	if err != nil {
		return nil, err
	}
	return s.GetMany(ctx, ids)
}

// OpenProjects returns projects still waiting for a freelancer.
func (s *Service) OpenProjects(ctx context.Context) ([]Project, error) {
	return s.ListByStatus(ctx, StatusCreated)
}

// ListByStatus filters a full scan of the ledger.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Project, error) {
	if !status.Valid() {
		return nil, ErrInvalidInput
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]Project, 0)
	for _, proj := range all {
		if proj.Status == status {
			matched = append(matched, proj)
		}
	}
	return matched, nil
}

// Balance returns the value released to identity by approvals.
func (s *Service) Balance(ctx context.Context, identity string) (*big.Int, error) {
	balance, err := s.repo.Balance(ctx, strings.TrimSpace(identity))
	if err != nil {
		return nil, fmt.Errorf("getting balance: %w", err)
	}
	return balance, nil
}

// Search matches project descriptions.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]Project, error) {
	if strings.TrimSpace(query) == "" || opts.Limit < 0 || opts.Offset < 0 {
		return nil, ErrInvalidInput
	}
	for _, status := range opts.Statuses {
		if !status.Valid() {
			return nil, ErrInvalidInput
		}
	}
	projects, err := s.repo.Search(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	return projects, nil
}

func (s *Service) newEvent(typ event.Type, actor string, details map[string]string) event.Event {
	return event.Event{
		EventID:   uuid.NewString(),
		Type:      typ,
		Actor:     actor,
		Details:   details,
		CreatedAt: s.now(),
	}
}

// committed logs and publishes after a successful commit. A publish
// failure does not undo the commit; observers can catch up from the
// stored events.
func (s *Service) committed(ctx context.Context, msg string, proj *Project, evt event.Event) {
	if s.logger != nil {
		s.logger.Info(msg,
			"project_id", proj.ID,
			"event", evt.Type,
			"caller", evt.Actor,
			"status", proj.Status.String(),
		)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil && s.logger != nil {
		s.logger.Warn("failed to publish event", "event_id", evt.EventID, "seq", evt.Seq, "error", err)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
