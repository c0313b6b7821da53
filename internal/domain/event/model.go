package event

import "time"

// Type identifies the ledger transition an event records.
type Type string

const (
	TypeProjectCreated  Type = "project_created"
	TypeProjectAccepted Type = "project_accepted"
	TypeWorkSubmitted   Type = "work_submitted"
	TypeWorkApproved    Type = "work_approved"
	TypeDisputeRaised   Type = "dispute_raised"
)

// Valid reports whether t is one of the known event types.
func (t Type) Valid() bool {
	switch t {
	case TypeProjectCreated, TypeProjectAccepted, TypeWorkSubmitted, TypeWorkApproved, TypeDisputeRaised:
		return true
	}
	return false
}

// Detail keys carried by events.
const (
	DetailClient          = "client"
	DetailAmount          = "amount"
	DetailFreelancer      = "freelancer"
	DetailDeliverableHash = "deliverable_hash"
)

// Event is an immutable audit entry for one committed transition.
// Seq is assigned at commit and orders events by commit order.
type Event struct {
	Seq       int64             `json:"seq"`
	EventID   string            `json:"event_id"`
	ProjectID uint64            `json:"project_id"`
	Type      Type              `json:"type"`
	Actor     string            `json:"actor"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
