package stats

import (
	"context"

	"github.com/rpggio/proofchain/internal/domain/project"
)

// Reader is the read surface statistics are derived from.
type Reader interface {
	List(ctx context.Context) ([]project.Project, error)
	ClientProjects(ctx context.Context, client string) ([]project.Project, error)
	FreelancerProjects(ctx context.Context, freelancer string) ([]project.Project, error)
}
