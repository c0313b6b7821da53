package stats

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/rpggio/proofchain/internal/domain/project"
)

// Service computes per-identity statistics and value locked. It holds no
// state of its own.
type Service struct {
	reader Reader
}

// NewService creates a statistics service over reader.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// AddressStatistics returns counts and sums for identity as client and as
// freelancer.
func (s *Service) AddressStatistics(ctx context.Context, identity string) (*Statistics, error) {
	identity = strings.TrimSpace(identity)

	asClient, err := s.reader.ClientProjects(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("reading client projects: %w", err)
	}
	asFreelancer, err := s.reader.FreelancerProjects(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("reading freelancer projects: %w", err)
	}

	st := Summarize(asClient, asFreelancer)
	return &st, nil
}

// TotalValueLocked returns the value held in custody across all projects.
func (s *Service) TotalValueLocked(ctx context.Context) (*big.Int, error) {
	all, err := s.reader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return ValueLocked(all), nil
}

// Summarize folds the projects an identity funded and accepted into
// Statistics. Only Approved projects count as completed.
func Summarize(asClient, asFreelancer []project.Project) Statistics {
	st := Statistics{
		TotalAsClient:           uint64(len(asClient)),
		TotalAsFreelancer:       uint64(len(asFreelancer)),
		TotalSpentAsClient:      new(big.Int),
		TotalEarnedAsFreelancer: new(big.Int),
	}
	for _, p := range asClient {
		if p.Status == project.StatusApproved {
			st.CompletedAsClient++
			addAmount(st.TotalSpentAsClient, p.Amount)
		}
	}
	for _, p := range asFreelancer {
		if p.Status == project.StatusApproved {
			st.CompletedAsFreelancer++
			addAmount(st.TotalEarnedAsFreelancer, p.Amount)
		}
	}
	return st
}

// ValueLocked sums amounts of projects still in custody. Disputed
// projects stay locked.
func ValueLocked(projects []project.Project) *big.Int {
	total := new(big.Int)
	for _, p := range projects {
		if p.HoldsCustody() {
			addAmount(total, p.Amount)
		}
	}
	return total
}

func addAmount(total, amount *big.Int) {
	if amount != nil {
		total.Add(total, amount)
	}
}
