package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/domain/stats"
	"github.com/rpggio/proofchain/internal/memstore"
	"github.com/stretchr/testify/require"
)

const oneToken = "1000000000000000000"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := memstore.New()
	ledger := project.NewService(store, nil, nil)
	return NewHandler(ledger, stats.NewService(ledger), event.NewService(store.Events(), nil))
}

func call(t *testing.T, h *Handler, caller, method string, params any) (any, error) {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return h.Handle(context.Background(), caller, method, raw)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T: %v", err, err)
	require.Equal(t, code, apiErr.Code)
}

func TestHandle_UnknownMethod(t *testing.T) {
	h := newTestHandler(t)
	_, err := call(t, h, "alice", "withdraw_everything", nil)
	requireCode(t, err, "METHOD_NOT_FOUND")
}

func TestHandle_InvalidParams(t *testing.T) {
	h := newTestHandler(t)
	_, err := h.Handle(context.Background(), "alice", "get_project", json.RawMessage(`{"id":"one"}`))
	requireCode(t, err, "INVALID_PARAMS")
}

func TestHandle_CreateProject(t *testing.T) {
	h := newTestHandler(t)

	result, err := call(t, h, "alice", "create_project", CreateProjectParams{
		Description: "Build a landing page",
		Deadline:    1700000000,
		Amount:      "123456789012345678901234567890",
	})
	require.NoError(t, err)
	resp := result.(ProjectResponse)
	require.Equal(t, uint64(1), resp.Project.ID)
	require.Equal(t, "alice", resp.Project.Client)
	require.Equal(t, "123456789012345678901234567890", resp.Project.Amount)
	require.Equal(t, "Created", resp.Project.Status)
	require.Empty(t, resp.Project.Freelancer)

	for _, amount := range []string{"0", "-5", "abc", ""} {
		_, err = call(t, h, "alice", "create_project", CreateProjectParams{Description: "x", Amount: amount})
		requireCode(t, err, "INVALID_AMOUNT")
	}

	result, err = call(t, h, "alice", "get_project_count", nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.(CountResponse).Count)
}

func TestHandle_Lifecycle(t *testing.T) {
	h := newTestHandler(t)

	_, err := call(t, h, "alice", "create_project", CreateProjectParams{Description: "job", Amount: oneToken})
	require.NoError(t, err)

	_, err = call(t, h, "alice", "accept_project", ProjectIDParams{ID: 1})
	requireCode(t, err, "SELF_DEALING")

	result, err := call(t, h, "bob", "accept_project", ProjectIDParams{ID: 1})
	require.NoError(t, err)
	require.Equal(t, "bob", result.(ProjectResponse).Project.Freelancer)
	require.Equal(t, "Accepted", result.(ProjectResponse).Project.Status)

	_, err = call(t, h, "bob", "accept_project", ProjectIDParams{ID: 1})
	requireCode(t, err, "INVALID_STATE")

	_, err = call(t, h, "carol", "submit_work", SubmitWorkParams{ID: 1, DeliverableHash: "ref"})
	requireCode(t, err, "UNAUTHORIZED")

	result, err = call(t, h, "bob", "submit_work", SubmitWorkParams{ID: 1, DeliverableHash: "ref"})
	require.NoError(t, err)
	require.Equal(t, "ref", result.(ProjectResponse).Project.DeliverableHash)

	_, err = call(t, h, "bob", "approve_work", ProjectIDParams{ID: 1})
	requireCode(t, err, "UNAUTHORIZED")

	result, err = call(t, h, "alice", "approve_work", ProjectIDParams{ID: 1})
	require.NoError(t, err)
	require.Equal(t, "Approved", result.(ProjectResponse).Project.Status)

	result, err = call(t, h, "", "get_balance", AddressParams{Address: "bob"})
	require.NoError(t, err)
	require.Equal(t, oneToken, result.(BalanceResponse).Balance)

	_, err = call(t, h, "alice", "raise_dispute", ProjectIDParams{ID: 1})
	requireCode(t, err, "INVALID_STATE")

	_, err = call(t, h, "alice", "approve_work", ProjectIDParams{ID: 1})
	requireCode(t, err, "INVALID_STATE")

	result, err = call(t, h, "", "get_balance", AddressParams{Address: "bob"})
	require.NoError(t, err)
	require.Equal(t, oneToken, result.(BalanceResponse).Balance)

	result, err = call(t, h, "", "list_events", ListEventsParams{})
	require.NoError(t, err)
	events := result.(EventsResponse).Events
	require.Len(t, events, 4)
	require.Equal(t, string(event.TypeProjectCreated), events[0].Type)
	require.Equal(t, string(event.TypeWorkApproved), events[3].Type)
}

func TestHandle_NotFound(t *testing.T) {
	h := newTestHandler(t)

	_, err := call(t, h, "", "get_project", ProjectIDParams{ID: 9})
	requireCode(t, err, "NOT_FOUND")

	_, err = call(t, h, "bob", "accept_project", ProjectIDParams{ID: 9})
	requireCode(t, err, "NOT_FOUND")

	result, err := call(t, h, "", "project_exists", ProjectIDParams{ID: 9})
	require.NoError(t, err)
	require.False(t, result.(ExistsResponse).Exists)
}

func TestHandle_Reads(t *testing.T) {
	h := newTestHandler(t)
	for i, client := range []string{"alice", "bob", "alice"} {
		_, err := call(t, h, client, "create_project", CreateProjectParams{
			Description: fmt.Sprintf("website job %d", i+1),
			Amount:      "10",
		})
		require.NoError(t, err)
	}
	_, err := call(t, h, "carol", "accept_project", ProjectIDParams{ID: 2})
	require.NoError(t, err)

	result, err := call(t, h, "", "get_all_project_ids", nil)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, result.(ProjectIDsResponse).IDs)

	result, err = call(t, h, "", "get_client_project_ids", AddressParams{Address: "alice"})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3}, result.(ProjectIDsResponse).IDs)

	result, err = call(t, h, "", "get_freelancer_project_ids", AddressParams{Address: "nobody"})
	require.NoError(t, err)
	require.NotNil(t, result.(ProjectIDsResponse).IDs)
	require.Empty(t, result.(ProjectIDsResponse).IDs)

	result, err = call(t, h, "", "get_open_projects", nil)
	require.NoError(t, err)
	require.Len(t, result.(ProjectsResponse).Projects, 2)

	result, err = call(t, h, "", "get_projects_by_status", StatusParams{Status: "Accepted"})
	require.NoError(t, err)
	require.Len(t, result.(ProjectsResponse).Projects, 1)
	require.Equal(t, "carol", result.(ProjectsResponse).Projects[0].Freelancer)

	_, err = call(t, h, "", "get_projects_by_status", StatusParams{Status: "Cancelled"})
	requireCode(t, err, "INVALID_INPUT")

	result, err = call(t, h, "", "get_projects_in_range", RangeParams{Start: 2, End: 10})
	require.NoError(t, err)
	require.Len(t, result.(ProjectsResponse).Projects, 2)

	result, err = call(t, h, "", "get_projects_by_ids", ProjectIDsParams{IDs: []uint64{3, 1}})
	require.NoError(t, err)
	projects := result.(ProjectsResponse).Projects
	require.Equal(t, uint64(3), projects[0].ID)
	require.Equal(t, uint64(1), projects[1].ID)

	result, err = call(t, h, "", "get_address_statistics", AddressParams{Address: "alice"})
	require.NoError(t, err)
	statsResp := result.(StatisticsResponse)
	require.Equal(t, uint64(2), statsResp.TotalAsClient)
	require.Equal(t, "0", statsResp.TotalSpentAsClient)

	result, err = call(t, h, "", "get_total_value_locked", nil)
	require.NoError(t, err)
	require.Equal(t, "30", result.(ValueLockedResponse).Amount)

	result, err = call(t, h, "", "search_projects", SearchProjectsParams{Query: "website", Statuses: []string{"Created"}})
	require.NoError(t, err)
	require.Len(t, result.(ProjectsResponse).Projects, 2)

	_, err = call(t, h, "", "list_events", ListEventsParams{Type: "bogus"})
	requireCode(t, err, "INVALID_INPUT")
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{project.ErrSelfDealing, "SELF_DEALING"},
		{fmt.Errorf("accepting project: %w", project.ErrSelfDealing), "SELF_DEALING"},
		{project.ErrUnauthorized, "UNAUTHORIZED"},
		{project.ErrInvalidAmount, "INVALID_AMOUNT"},
		{project.ErrInvalidState, "INVALID_STATE"},
		{project.ErrProjectNotFound, "NOT_FOUND"},
		{project.ErrInvalidInput, "INVALID_INPUT"},
		{event.ErrInvalidInput, "INVALID_INPUT"},
	}
	for _, tc := range cases {
		apiErr := MapError(tc.err)
		require.NotNil(t, apiErr, tc.err.Error())
		require.Equal(t, tc.code, apiErr.Code)
	}

	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(fmt.Errorf("disk full")))
}

func TestToolNames(t *testing.T) {
	names := newTestHandler(t).ToolNames()
	require.Len(t, names, 23)
	require.Contains(t, names, "create_project")
	require.Contains(t, names, "get_freelancer_project_ids")
	require.Contains(t, names, "list_events")
}
