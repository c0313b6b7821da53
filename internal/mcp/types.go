package mcp

import (
	"math/big"
	"time"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/domain/stats"
)

// Amounts travel as base-10 strings so values above 2^53 survive JSON clients.

type CreateProjectParams struct {
	Description string `json:"description" jsonschema:"what the freelancer is asked to deliver"`
	Deadline    uint64 `json:"deadline,omitempty" jsonschema:"unix seconds; informational only"`
	Amount      string `json:"amount" jsonschema:"escrowed value in base units, base-10 integer string"`
}

type ProjectIDParams struct {
	ID uint64 `json:"id" jsonschema:"project id"`
}

type SubmitWorkParams struct {
	ID              uint64 `json:"id" jsonschema:"project id"`
	DeliverableHash string `json:"deliverable_hash" jsonschema:"content address of the delivered work"`
}

type AddressParams struct {
	Address string `json:"address" jsonschema:"participant identity"`
}

type StatusParams struct {
	Status string `json:"status" jsonschema:"Created, Accepted, WorkSubmitted, Approved or Disputed (or ordinal 0-4)"`
}

type RangeParams struct {
	Start uint64 `json:"start" jsonschema:"first id, inclusive"`
	End   uint64 `json:"end" jsonschema:"last id, inclusive"`
}

type ProjectIDsParams struct {
	IDs []uint64 `json:"ids" jsonschema:"project ids, results keep this order"`
}

type EmptyParams struct{}

type SearchProjectsParams struct {
	Query    string   `json:"query" jsonschema:"text matched against descriptions"`
	Statuses []string `json:"statuses,omitempty" jsonschema:"restrict results to these statuses"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

type ListEventsParams struct {
	ProjectID *uint64 `json:"project_id,omitempty" jsonschema:"only events for this project"`
	Type      string  `json:"type,omitempty" jsonschema:"only events of this type"`
	AfterSeq  int64   `json:"after_seq,omitempty" jsonschema:"return events committed after this sequence number"`
	Limit     int     `json:"limit,omitempty"`
}

type ProjectView struct {
	ID              uint64 `json:"id"`
	Description     string `json:"description"`
	Client          string `json:"client"`
	Freelancer      string `json:"freelancer,omitempty"`
	Amount          string `json:"amount"`
	Deadline        uint64 `json:"deadline"`
	Status          string `json:"status"`
	DeliverableHash string `json:"deliverable_hash,omitempty"`
}

type ProjectResponse struct {
	Project ProjectView `json:"project"`
}

type ProjectsResponse struct {
	Projects []ProjectView `json:"projects"`
}

type ProjectIDsResponse struct {
	IDs []uint64 `json:"ids"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type StatisticsResponse struct {
	Address                 string `json:"address"`
	TotalAsClient           uint64 `json:"total_as_client"`
	TotalAsFreelancer       uint64 `json:"total_as_freelancer"`
	CompletedAsClient       uint64 `json:"completed_as_client"`
	CompletedAsFreelancer   uint64 `json:"completed_as_freelancer"`
	TotalSpentAsClient      string `json:"total_spent_as_client"`
	TotalEarnedAsFreelancer string `json:"total_earned_as_freelancer"`
}

type ValueLockedResponse struct {
	Amount string `json:"amount"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type EventView struct {
	Seq       int64             `json:"seq"`
	EventID   string            `json:"event_id"`
	ProjectID uint64            `json:"project_id"`
	Type      string            `json:"type"`
	Actor     string            `json:"actor"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt string            `json:"created_at"`
}

type EventsResponse struct {
	Events []EventView `json:"events"`
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func toProjectView(p project.Project) ProjectView {
	return ProjectView{
		ID:              p.ID,
		Description:     p.Description,
		Client:          p.Client,
		Freelancer:      p.Freelancer,
		Amount:          formatAmount(p.Amount),
		Deadline:        p.Deadline,
		Status:          p.Status.String(),
		DeliverableHash: p.DeliverableHash,
	}
}

func toProjectsResponse(projects []project.Project) ProjectsResponse {
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, toProjectView(p))
	}
	return ProjectsResponse{Projects: views}
}

func toProjectIDsResponse(ids []uint64) ProjectIDsResponse {
	if ids == nil {
		ids = []uint64{}
	}
	return ProjectIDsResponse{IDs: ids}
}

func toStatisticsResponse(address string, s *stats.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Address:                 address,
		TotalAsClient:           s.TotalAsClient,
		TotalAsFreelancer:       s.TotalAsFreelancer,
		CompletedAsClient:       s.CompletedAsClient,
		CompletedAsFreelancer:   s.CompletedAsFreelancer,
		TotalSpentAsClient:      formatAmount(s.TotalSpentAsClient),
		TotalEarnedAsFreelancer: formatAmount(s.TotalEarnedAsFreelancer),
	}
}

func toEventsResponse(events []event.Event) EventsResponse {
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, EventView{
			Seq:       e.Seq,
			EventID:   e.EventID,
			ProjectID: e.ProjectID,
			Type:      string(e.Type),
			Actor:     e.Actor,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return EventsResponse{Events: views}
}
