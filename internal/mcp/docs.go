package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `proofchain is an escrow ledger for freelance projects.

Core concepts:
- Project: a funded job. The creator is its client; the amount is held in custody until approval.
- Status: Created -> Accepted -> WorkSubmitted -> Approved, or Created/Accepted -> Disputed. Approved and Disputed are final.
- Amounts are base-10 integer strings in base units.

Workflow:
1) Browse: get_open_projects / search_projects / get_project.
2) Client: create_project, later approve_work (releases the amount) or raise_dispute.
3) Freelancer: accept_project, then submit_work with the deliverable hash.
4) Audit: list_events with after_seq to follow committed transitions.

Docs:
- proofchain://docs/lifecycle (states, guards and error codes)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "proofchain://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Project lifecycle",
		Description: "States, who may move a project between them, and the error codes each guard reports.",
		Content: `# Project lifecycle

| From | Tool | Who | To |
|---|---|---|---|
| Created | ` + "`accept_project`" + ` | anyone except the client | Accepted |
| Accepted | ` + "`submit_work`" + ` | the freelancer | WorkSubmitted |
| WorkSubmitted | ` + "`approve_work`" + ` | the client | Approved |
| Created, Accepted | ` + "`raise_dispute`" + ` | the client or the freelancer | Disputed |

Approved and Disputed are final. Approval moves the escrowed amount to the
freelancer's balance in the same commit as the status change; a project is
paid out at most once.

## Error codes

- ` + "`INVALID_AMOUNT`" + `: create_project with an amount that is not a positive integer.
- ` + "`SELF_DEALING`" + `: a client tried to accept their own project.
- ` + "`UNAUTHORIZED`" + `: the caller does not hold the role the transition needs.
- ` + "`INVALID_STATE`" + `: the project is not in a status the transition starts from.
- ` + "`NOT_FOUND`" + `: no project has that id.
- ` + "`INVALID_INPUT`" + `: blank description or deliverable hash, unknown status name, bad list filter.

Failed calls change nothing and emit no event.

## Reads

Index reads (` + "`get_client_project_ids`" + `, ` + "`get_freelancer_project_ids`" + `) list ids
in the order they were appended. ` + "`get_open_projects`" + ` and ` + "`get_projects_by_status`" + `
are computed from a full scan at call time.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
