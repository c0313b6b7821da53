package project

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/proofchain/internal/domain/event"
)

// Status is the lifecycle position of a project. The ordinals match the
// values clients already persist, so new states must be appended.
type Status uint8

const (
	StatusCreated Status = iota
	StatusAccepted
	StatusWorkSubmitted
	StatusApproved
	StatusDisputed
)

var statusNames = [...]string{"Created", "Accepted", "WorkSubmitted", "Approved", "Disputed"}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus accepts a status name (case-insensitive) or its ordinal.
func ParseStatus(value string) (Status, error) {
	value = strings.TrimSpace(value)
	for i, name := range statusNames {
		if strings.EqualFold(value, name) {
			return Status(i), nil
		}
	}
	if n, err := strconv.ParseUint(value, 10, 8); err == nil && Status(n).Valid() {
		return Status(n), nil
	}
	return 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, value)
}

// Project is a single escrow record.
type Project struct {
	ID              uint64    `json:"id"`
	Description     string    `json:"description"`
	Client          string    `json:"client"`
	Freelancer      string    `json:"freelancer,omitempty"`
	Amount          *big.Int  `json:"amount"`
	Deadline        uint64    `json:"deadline"`
	Status          Status    `json:"status"`
	DeliverableHash string    `json:"deliverable_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers never share the amount.
func (p Project) Clone() Project {
	if p.Amount != nil {
		p.Amount = new(big.Int).Set(p.Amount)
	}
	return p
}

// HoldsCustody reports whether the ledger still holds the project's amount.
func (p Project) HoldsCustody() bool {
	return p.Status != StatusApproved
}

// Transfer releases a project's amount from custody to a recipient.
type Transfer struct {
	ProjectID uint64    `json:"project_id"`
	Recipient string    `json:"recipient"`
	Amount    *big.Int  `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Change is one atomic ledger mutation. The store applies the record
// update, any index append, any transfer and the audit event together,
// and only if the stored status still equals From.
type Change struct {
	Project         Project
	From            Status
	IndexFreelancer bool
	Transfer        *Transfer
	Event           event.Event
}

// SearchOptions filters description search results.
type SearchOptions struct {
	Statuses []Status
	Limit    int
	Offset   int
}
