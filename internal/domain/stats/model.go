package stats

import "math/big"

// Statistics summarizes one identity's activity on the ledger.
type Statistics struct {
	TotalAsClient           uint64   `json:"total_as_client"`
	TotalAsFreelancer       uint64   `json:"total_as_freelancer"`
	CompletedAsClient       uint64   `json:"completed_as_client"`
	CompletedAsFreelancer   uint64   `json:"completed_as_freelancer"`
	TotalSpentAsClient      *big.Int `json:"total_spent_as_client"`
	TotalEarnedAsFreelancer *big.Int `json:"total_earned_as_freelancer"`
}
