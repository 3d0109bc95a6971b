package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType tags an audit entry and selects its payload shape.
type ActionType string

const (
	// TypeProductAdded records a product creation.
	TypeProductAdded ActionType = "product_added"
	// TypeProductUpdated records a product edit with its prior values.
	TypeProductUpdated ActionType = "product_updated"
	// TypePriceChange records a price-history append.
	TypePriceChange ActionType = "price_change"
	// TypePermissionChange records a role-grant mutation.
	TypePermissionChange ActionType = "permission_change"
	// TypeOverrideSet records a per-identity override mutation.
	TypeOverrideSet ActionType = "permission_override_set"
	// TypeRequestResolved records a promotion request resolution.
	TypeRequestResolved ActionType = "permission_request_resolved"
	// TypeAdminBootstrapped records the one-time first-admin claim.
	TypeAdminBootstrapped ActionType = "admin_bootstrapped"
	// TypeActionReverted records the reversal of a prior entry.
	// Reversal is one-way: these entries are never themselves revertible.
	TypeActionReverted ActionType = "action_reverted"
)

// Revertible reports whether entries of this type carry enough context
// for a compensating operation.
func (t ActionType) Revertible() bool {
	switch t {
	case TypeProductAdded, TypeProductUpdated, TypePriceChange, TypePermissionChange:
		return true
	default:
		return false
	}
}

// Entry is an immutable record of a mutating action. Only the reverted
// flag ever changes after the append.
type Entry struct {
	ID         uuid.UUID
	Type       ActionType
	ActorID    int64
	Payload    Payload
	CreatedAt  time.Time
	Revertible bool
	Reverted   bool
}

// Payload carries the action-specific context a reversal handler needs.
// Each action type has exactly one concrete shape.
type Payload interface {
	actionType() ActionType
}

// ProductAdded describes a created product.
type ProductAdded struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// ProductUpdated describes an edit, keyed by the values it replaced.
type ProductUpdated struct {
	Code           string         `json:"code"`
	PreviousValues map[string]any `json:"previous_values"`
}

// PriceChange describes an appended price point. PreviousPrice is nil for
// a product's first price.
type PriceChange struct {
	Code          string   `json:"code"`
	NewPrice      float64  `json:"new_price"`
	PreviousPrice *float64 `json:"previous_price,omitempty"`
}

// PermissionChange describes a role-grant mutation.
type PermissionChange struct {
	Role            string `json:"role"`
	Action          string `json:"action"`
	PreviousAllowed bool   `json:"previous_allowed"`
	Allowed         bool   `json:"allowed"`
}

// OverrideSet describes a per-identity override mutation. Previous is nil
// when no override existed before.
type OverrideSet struct {
	IdentityID int64  `json:"identity_id"`
	Action     string `json:"action"`
	Previous   *bool  `json:"previous,omitempty"`
	Allowed    bool   `json:"allowed"`
}

// RequestResolved describes a promotion request resolution.
type RequestResolved struct {
	RequestID   uuid.UUID `json:"request_id"`
	RequesterID int64     `json:"requester_id"`
	Decision    string    `json:"decision"`
}

// AdminBootstrapped describes the first-admin claim.
type AdminBootstrapped struct {
	IdentityID int64  `json:"identity_id"`
	Email      string `json:"email"`
}

// Reverted references the entry a reversal compensated.
type Reverted struct {
	OriginalID   uuid.UUID  `json:"original_id"`
	OriginalType ActionType `json:"original_type"`
}

func (*ProductAdded) actionType() ActionType      { return TypeProductAdded }
func (*ProductUpdated) actionType() ActionType    { return TypeProductUpdated }
func (*PriceChange) actionType() ActionType       { return TypePriceChange }
func (*PermissionChange) actionType() ActionType  { return TypePermissionChange }
func (*OverrideSet) actionType() ActionType       { return TypeOverrideSet }
func (*RequestResolved) actionType() ActionType   { return TypeRequestResolved }
func (*AdminBootstrapped) actionType() ActionType { return TypeAdminBootstrapped }
func (*Reverted) actionType() ActionType          { return TypeActionReverted }

// TypeOf returns the action type a payload belongs to.
func TypeOf(p Payload) ActionType {
	return p.actionType()
}

// decodePayload deserializes a stored payload by its entry's action type.
func decodePayload(t ActionType, data []byte) (Payload, error) {
	var target Payload
	switch t {
	case TypeProductAdded:
		target = &ProductAdded{}
	case TypeProductUpdated:
		target = &ProductUpdated{}
	case TypePriceChange:
		target = &PriceChange{}
	case TypePermissionChange:
		target = &PermissionChange{}
	case TypeOverrideSet:
		target = &OverrideSet{}
	case TypeRequestResolved:
		target = &RequestResolved{}
	case TypeAdminBootstrapped:
		target = &AdminBootstrapped{}
	case TypeActionReverted:
		target = &Reverted{}
	default:
		return nil, fmt.Errorf("audit: unknown action type %q", t)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("audit: decode %s payload: %w", t, err)
	}
	return target, nil
}
