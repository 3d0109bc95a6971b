package permission

import "time"

// Role names understood by the resolution engine.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Actions gated by the permission engine.
const (
	ActionProductAdd    = "product.add"
	ActionProductEdit   = "product.edit"
	ActionProductDelete = "product.delete"
	ActionPriceAdd      = "price.add"
	ActionPriceEdit     = "price.edit"
	ActionPriceDelete   = "price.delete"
	ActionManageUsers   = "users.manage"
)

// MutationActions lists the catalog actions seeded with default grants
// during bootstrap.
func MutationActions() []string {
	return []string{
		ActionProductAdd,
		ActionProductEdit,
		ActionProductDelete,
		ActionPriceAdd,
		ActionPriceEdit,
		ActionPriceDelete,
	}
}

// Grant represents the default allow/deny policy for a role+action pair.
type Grant struct {
	Role      string
	Action    string
	Allowed   bool
	UpdatedAt time.Time
}

// Profile is the slice of an identity the engine needs for a decision:
// the current role plus any per-identity overrides.
type Profile struct {
	ID        int64
	Role      string
	Overrides map[string]bool
}
