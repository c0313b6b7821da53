package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/proofchain/internal/domain/project"
	"github.com/rpggio/proofchain/internal/repository"
)

// Search performs a full-text search over project descriptions. The query
// is matched as a phrase so FTS5 operators in user input stay literal.
func (r *LedgerRepository) Search(ctx context.Context, query string, opts project.SearchOptions) ([]project.Project, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, repository.ErrInvalidInput
	}

	baseQuery := `
		SELECT p.id, p.description, p.client, p.freelancer, p.amount, p.deadline, p.status, p.deliverable_hash, p.created_at
		FROM projects_fts
		JOIN projects p ON p.id = projects_fts.rowid
		WHERE projects_fts MATCH ?
	`

	args := []any{`"` + strings.ReplaceAll(query, `"`, `""`) + `"`}

	if len(opts.Statuses) > 0 {
		placeholders := make([]string, len(opts.Statuses))
		for i, status := range opts.Statuses {
			placeholders[i] = "?"
			args = append(args, int(status))
		}
		baseQuery += fmt.Sprintf(" AND p.status IN (%s)", strings.Join(placeholders, ","))
	}

	baseQuery += " ORDER BY projects_fts.rank, p.id"

	if opts.Limit > 0 {
		baseQuery += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		baseQuery += " LIMIT -1"
	}
	if opts.Offset > 0 {
		baseQuery += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	projects, err := r.queryProjects(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	return projects, nil
}
