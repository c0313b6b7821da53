package mcp

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// tool binds one typed operation to both surfaces: call decodes JSON-RPC
// params, register adds it to an MCP server with an inferred schema.
type tool struct {
	name        string
	description string
	call        func(ctx context.Context, caller string, params json.RawMessage) (any, error)
	register    func(server *sdkmcp.Server)
}

func newTool[In, Out any](name, description string, fn func(context.Context, string, In) (Out, error)) tool {
	return tool{
		name:        name,
		description: description,
		call: func(ctx context.Context, caller string, params json.RawMessage) (any, error) {
			var in In
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			out, err := fn(ctx, caller, in)
			if err != nil {
				return nil, mapError(err)
			}
			return out, nil
		},
		register: func(server *sdkmcp.Server) {
			handler := func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
				out, err := fn(ctx, getCaller(ctx), in)
				if err != nil {
					var zero Out
					return nil, zero, mapError(err)
				}
				return nil, out, nil
			}
			sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description}, handler)
		},
	}
}

// buildToolCatalog returns all available tools.
func (h *Handler) buildToolCatalog() []tool {
	return []tool{
		// Mutations
		newTool("create_project", "Fund a new project. The caller becomes its client and the amount is held in custody.", h.createProject),
		newTool("accept_project", "Accept an open project as its freelancer. Clients cannot accept their own projects.", h.acceptProject),
		newTool("submit_work", "Record the deliverable hash for an accepted project. Freelancer only.", h.submitWork),
		newTool("approve_work", "Approve submitted work and release the escrowed amount to the freelancer. Client only.", h.approveWork),
		newTool("raise_dispute", "Freeze a Created or Accepted project. Client or freelancer only.", h.raiseDispute),

		// Records
		newTool("get_project", "Get a single project by id", h.getProject),
		newTool("get_all_projects", "List every project in id order", h.getAllProjects),
		newTool("get_projects_in_range", "List projects with ids in [start, end]; ids past the current count are omitted", h.getProjectsInRange),
		newTool("get_projects_by_ids", "Get projects for a list of ids, in request order", h.getProjectsByIDs),
		newTool("get_project_count", "Number of projects ever created", h.getProjectCount),
		newTool("project_exists", "Report whether a project id has been allocated", h.projectExists),
		newTool("get_all_project_ids", "List every allocated project id", h.getAllProjectIDs),

		// Indices
		newTool("get_client_projects", "List projects created by an address", h.getClientProjects),
		newTool("get_freelancer_projects", "List projects accepted by an address", h.getFreelancerProjects),
		newTool("get_client_project_ids", "List ids of projects created by an address", h.getClientProjectIDs),
		newTool("get_freelancer_project_ids", "List ids of projects accepted by an address", h.getFreelancerProjectIDs),
		newTool("get_open_projects", "List projects still waiting for a freelancer", h.getOpenProjects),
		newTool("get_projects_by_status", "List projects currently in a status", h.getProjectsByStatus),
		newTool("search_projects", "Full-text search over project descriptions", h.searchProjects),

		// Statistics
		newTool("get_address_statistics", "Per-address counts and totals as client and freelancer", h.getAddressStatistics),
		newTool("get_total_value_locked", "Sum of amounts still held in custody", h.getTotalValueLocked),
		newTool("get_balance", "Total value released to an address by approvals", h.getBalance),

		// Audit
		newTool("list_events", "List committed audit events in commit order", h.listEvents),
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler) {
	for _, t := range handler.tools {
		t.register(server)
	}
}
