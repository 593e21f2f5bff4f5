// Package actor identifies the counter performing actions against an
// inventory. The identity is extracted from the externally issued token by the
// auth middleware and carried in the request context.
//
// It is used for:
// - recording counter identity and timestamps on counts and serial readings
// - gating the elevated supervisor/auditor read and correction paths
package actor

import (
	"context"
	"fmt"
)

// Roles recognized by the counting service. Issuance is owned by the external
// identity provider; only the role names are a contract here.
const (
	RoleCounter    = "counter"
	RoleSupervisor = "supervisor"
	RoleAuditor    = "auditor"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (counter ID)
	ID string `json:"id"`

	// Name is the actor's display name
	Name string `json:"name"`

	// Role is the actor's role (counter, supervisor, auditor)
	Role string `json:"role"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// Elevated reports whether the actor may use the elevated read and correction
// paths. Blind counting means regular counters never see prior-stage values;
// supervisors and auditors do.
func (a *Actor) Elevated() bool {
	if a == nil {
		return false
	}
	return a.Role == RoleSupervisor || a.Role == RoleAuditor
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the system itself.
// Use this for snapshot materialization and other system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:   "00000000-0000-0000-0000-000000000000",
		Name: "System",
		Role: RoleSupervisor,
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == "00000000-0000-0000-0000-000000000000"
}
