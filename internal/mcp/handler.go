package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/domain/stats"
)

// LedgerService defines ledger operations needed by MCP.
type LedgerService interface {
	Create(ctx context.Context, caller string, req project.CreateRequest) (*project.Project, error)
	Accept(ctx context.Context, caller string, id uint64) (*project.Project, error)
	SubmitWork(ctx context.Context, caller string, id uint64, deliverableHash string) (*project.Project, error)
	ApproveWork(ctx context.Context, caller string, id uint64) (*project.Project, error)
	RaiseDispute(ctx context.Context, caller string, id uint64) (*project.Project, error)

	Get(ctx context.Context, id uint64) (*project.Project, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Count(ctx context.Context) (uint64, error)
	List(ctx context.Context) ([]project.Project, error)
	AllIDs(ctx context.Context) ([]uint64, error)
	ListRange(ctx context.Context, start, end uint64) ([]project.Project, error)
	GetMany(ctx context.Context, ids []uint64) ([]project.Project, error)
	ClientProjectIDs(ctx context.Context, client string) ([]uint64, error)
	FreelancerProjectIDs(ctx context.Context, freelancer string) ([]uint64, error)
	ClientProjects(ctx context.Context, client string) ([]project.Project, error)
	FreelancerProjects(ctx context.Context, freelancer string) ([]project.Project, error)
	OpenProjects(ctx context.Context) ([]project.Project, error)
	ListByStatus(ctx context.Context, status project.Status) ([]project.Project, error)
	Balance(ctx context.Context, identity string) (*big.Int, error)
	Search(ctx context.Context, query string, opts project.SearchOptions) ([]project.Project, error)
}

// StatsService defines statistics reads needed by MCP.
type StatsService interface {
	AddressStatistics(ctx context.Context, identity string) (*stats.Statistics, error)
	TotalValueLocked(ctx context.Context) (*big.Int, error)
}

// EventService defines audit trail reads needed by MCP.
type EventService interface {
	List(ctx context.Context, opts event.ListOptions) ([]event.Event, error)
}

// Handler dispatches ledger commands. The same tool table serves JSON-RPC
// and MCP.
type Handler struct {
	ledger LedgerService
	stats  StatsService
	events EventService

	tools []tool
	index map[string]tool
}

// NewHandler creates a new MCP handler.
func NewHandler(ledger LedgerService, statsSvc StatsService, events EventService) *Handler {
	h := &Handler{
		ledger: ledger,
		stats:  statsSvc,
		events: events,
	}
	h.tools = h.buildToolCatalog()
	h.index = make(map[string]tool, len(h.tools))
	for _, t := range h.tools {
		h.index[t.name] = t
	}
	return h
}

// ToolNames returns the registered tool names in catalog order.
func (h *Handler) ToolNames() []string {
	names := make([]string, 0, len(h.tools))
	for _, t := range h.tools {
		names = append(names, t.name)
	}
	return names
}

// Handle dispatches a JSON-RPC request to the named tool.
func (h *Handler) Handle(ctx context.Context, caller, method string, params json.RawMessage) (any, error) {
	t, ok := h.index[method]
	if !ok {
		return nil, &APIError{Code: "METHOD_NOT_FOUND", Message: fmt.Sprintf("unknown method %q", method)}
	}
	return t.call(ctx, caller, params)
}

func (h *Handler) createProject(ctx context.Context, caller string, in CreateProjectParams) (ProjectResponse, error) {
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return ProjectResponse{}, err
	}
	proj, err := h.ledger.Create(ctx, caller, project.CreateRequest{
		Description: in.Description,
		Deadline:    in.Deadline,
		Amount:      amount,
	})
	return projectResponse(proj, err)
}

func (h *Handler) acceptProject(ctx context.Context, caller string, in ProjectIDParams) (ProjectResponse, error) {
	return projectResponse(h.ledger.Accept(ctx, caller, in.ID))
}

func (h *Handler) submitWork(ctx context.Context, caller string, in SubmitWorkParams) (ProjectResponse, error) {
	return projectResponse(h.ledger.SubmitWork(ctx, caller, in.ID, in.DeliverableHash))
}

func (h *Handler) approveWork(ctx context.Context, caller string, in ProjectIDParams) (ProjectResponse, error) {
	return projectResponse(h.ledger.ApproveWork(ctx, caller, in.ID))
}

func (h *Handler) raiseDispute(ctx context.Context, caller string, in ProjectIDParams) (ProjectResponse, error) {
	return projectResponse(h.ledger.RaiseDispute(ctx, caller, in.ID))
}

func (h *Handler) getProject(ctx context.Context, _ string, in ProjectIDParams) (ProjectResponse, error) {
	return projectResponse(h.ledger.Get(ctx, in.ID))
}

func (h *Handler) getAllProjects(ctx context.Context, _ string, _ EmptyParams) (ProjectsResponse, error) {
	return projectsResponse(h.ledger.List(ctx))
}

func (h *Handler) getClientProjects(ctx context.Context, _ string, in AddressParams) (ProjectsResponse, error) {
	return projectsResponse(h.ledger.ClientProjects(ctx, in.Address))
}

func (h *Handler) getFreelancerProjects(ctx context.Context, _ string, in AddressParams) (ProjectsResponse, error) {
	return projectsResponse(h.ledger.FreelancerProjects(ctx, in.Address))
}

func (h *Handler) getOpenProjects(ctx context.Context, _ string, _ EmptyParams) (ProjectsResponse, error) {
	return projectsResponse(h.ledger.OpenProjects(ctx))
}

func (h *Handler) getProjectsByStatus(ctx context.Context, _ string, in StatusParams) (ProjectsResponse, error) {
	status, err := project.ParseStatus(in.Status)
	if err != nil {
		return ProjectsResponse{}, err
	}
	return projectsResponse(h.ledger.ListByStatus(ctx, status))
}

func (h *Handler) getProjectsInRange(ctx context.Context, _ string, in RangeParams) (ProjectsResponse, error) {
	return projectsResponse(h.ledger.ListRange(ctx, in.Start, in.End))
}

func (h *Handler) getProjectsByIDs(ctx context.Context, _ string, in ProjectIDsParams) (ProjectsResponse, error) {
	return projectsResponse(h.ledger.GetMany(ctx, in.IDs))
}

func (h *Handler) getProjectCount(ctx context.Context, _ string, _ EmptyParams) (CountResponse, error) {
	count, err := h.ledger.Count(ctx)
	if err != nil {
		return CountResponse{}, err
	}
	return CountResponse{Count: count}, nil
}

func (h *Handler) projectExists(ctx context.Context, _ string, in ProjectIDParams) (ExistsResponse, error) {
	exists, err := h.ledger.Exists(ctx, in.ID)
	if err != nil {
		return ExistsResponse{}, err
	}
	return ExistsResponse{Exists: exists}, nil
}

func (h *Handler) getAllProjectIDs(ctx context.Context, _ string, _ EmptyParams) (ProjectIDsResponse, error) {
	return idsResponse(h.ledger.AllIDs(ctx))
}

func (h *Handler) getClientProjectIDs(ctx context.Context, _ string, in AddressParams) (ProjectIDsResponse, error) {
	return idsResponse(h.ledger.ClientProjectIDs(ctx, in.Address))
}

func (h *Handler) getFreelancerProjectIDs(ctx context.Context, _ string, in AddressParams) (ProjectIDsResponse, error) {
	return idsResponse(h.ledger.FreelancerProjectIDs(ctx, in.Address))
}

func (h *Handler) getAddressStatistics(ctx context.Context, _ string, in AddressParams) (StatisticsResponse, error) {
	s, err := h.stats.AddressStatistics(ctx, in.Address)
	if err != nil {
		return StatisticsResponse{}, err
	}
	return toStatisticsResponse(in.Address, s), nil
}

func (h *Handler) getTotalValueLocked(ctx context.Context, _ string, _ EmptyParams) (ValueLockedResponse, error) {
	total, err := h.stats.TotalValueLocked(ctx)
	if err != nil {
		return ValueLockedResponse{}, err
	}
	return ValueLockedResponse{Amount: formatAmount(total)}, nil
}

func (h *Handler) getBalance(ctx context.Context, _ string, in AddressParams) (BalanceResponse, error) {
	balance, err := h.ledger.Balance(ctx, in.Address)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{Address: in.Address, Balance: formatAmount(balance)}, nil
}

func (h *Handler) searchProjects(ctx context.Context, _ string, in SearchProjectsParams) (ProjectsResponse, error) {
	opts := project.SearchOptions{Limit: in.Limit, Offset: in.Offset}
	for _, raw := range in.Statuses {
		status, err := project.ParseStatus(raw)
		if err != nil {
			return ProjectsResponse{}, err
		}
		opts.Statuses = append(opts.Statuses, status)
	}
	return projectsResponse(h.ledger.Search(ctx, in.Query, opts))
}

func (h *Handler) listEvents(ctx context.Context, _ string, in ListEventsParams) (EventsResponse, error) {
	opts := event.ListOptions{ProjectID: in.ProjectID, AfterSeq: in.AfterSeq, Limit: in.Limit}
	if in.Type != "" {
		typ := event.Type(in.Type)
		opts.Type = &typ
	}
	events, err := h.events.List(ctx, opts)
	if err != nil {
		return EventsResponse{}, err
	}
	return toEventsResponse(events), nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base-10 integer", project.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func projectResponse(proj *project.Project, err error) (ProjectResponse, error) {
	if err != nil {
		return ProjectResponse{}, err
	}
	return ProjectResponse{Project: toProjectView(*proj)}, nil
}

func projectsResponse(projects []project.Project, err error) (ProjectsResponse, error) {
	if err != nil {
		return ProjectsResponse{}, err
	}
	return toProjectsResponse(projects), nil
}

func idsResponse(ids []uint64, err error) (ProjectIDsResponse, error) {
	if err != nil {
		return ProjectIDsResponse{}, err
	}
	return toProjectIDsResponse(ids), nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error(), RecoveryHint: "Check argument names and types"}
	}
	return nil
}
