package project

import (
	"context"
	"math/big"

	"github.com/rpggio/proofchain/internal/domain/event"
)

// Repository is the ledger store. Create allocates the next id and records
// the client index entry and the creation event in one commit.
type Repository interface {
	Create(ctx context.Context, proj *Project, evt *event.Event) error
	Get(ctx context.Context, id uint64) (*Project, error)
	Count(ctx context.Context) (uint64, error)
	List(ctx context.Context) ([]Project, error)
	ListRange(ctx context.Context, start, end uint64) ([]Project, error)
	ClientProjectIDs(ctx context.Context, client string) ([]uint64, error)
	FreelancerProjectIDs(ctx context.Context, freelancer string) ([]uint64, error)
	Apply(ctx context.Context, change *Change) error
	Balance(ctx context.Context, identity string) (*big.Int, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]Project, error)
}
