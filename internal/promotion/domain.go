package promotion

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates promotion request states. Pending is the only
// non-terminal state.
type Status string

const (
	// StatusPending marks an unresolved request.
	StatusPending Status = "pending"
	// StatusApproved marks a request granted by an admin.
	StatusApproved Status = "approved"
	// StatusRejected marks a request declined by an admin.
	StatusRejected Status = "rejected"
)

// Decision is the resolution an admin applies to a pending request.
type Decision string

const (
	// DecisionApprove promotes the requester to admin.
	DecisionApprove Decision = "approve"
	// DecisionReject leaves the requester's role untouched.
	DecisionReject Decision = "reject"
)

// Request represents a promotion workflow object.
type Request struct {
	ID          uuid.UUID
	RequesterID int64
	Status      Status
	RequestedAt time.Time
	ResolvedAt  *time.Time
	ResolvedBy  *int64
}

// Resolved reports whether the request reached a terminal state.
func (r Request) Resolved() bool {
	return r.Status != StatusPending
}
