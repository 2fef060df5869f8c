// Package authz resolves caller identity and role-based route capabilities.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Role is the normalized caller role. The zero value is RoleUnknown and
// never satisfies a RoleSet.
type Role int

const (
	RoleUnknown Role = iota
	RolePlayer
	RoleOwner
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole maps a stored role name onto the Role variant.
func ParseRole(name string) Role {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "player", "user":
		return RolePlayer
	case "owner", "venue_owner":
		return RoleOwner
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// RoleSet is the capability declared by a route.
type RoleSet map[Role]struct{}

func Roles(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

var (
	AnyRole       = Roles(RolePlayer, RoleOwner, RoleAdmin)
	OwnerOrAdmin  = Roles(RoleOwner, RoleAdmin)
	AdminOnly     = Roles(RoleAdmin)
	PlayerOrAdmin = Roles(RolePlayer, RoleAdmin)
)

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Role   Role
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

type actorContextKey struct{}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns nil when ctx carries no actor.
func ActorFromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorContextKey{}).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// Require checks the actor in ctx against allowed.
func Require(ctx context.Context, allowed RoleSet) (*Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !allowed.Has(actor.Role) {
		return actor, ErrForbidden
	}
	return actor, nil
}

// RoleDirectory maps stored role ids to Role variants. It is loaded once at
// startup and injected wherever identities are resolved.
type RoleDirectory struct {
	byID map[int64]Role
}

// RoleRecord is one row of the role table.
type RoleRecord struct {
	ID   int64
	Name string
}

// RoleLister is satisfied by the store.
type RoleLister interface {
	ListRoles(ctx context.Context) ([]RoleRecord, error)
}

func NewRoleDirectory(records []RoleRecord) (*RoleDirectory, error) {
	dir := &RoleDirectory{byID: make(map[int64]Role, len(records))}
	seen := make(map[Role]bool, 3)
	for _, record := range records {
		role := ParseRole(record.Name)
		if role == RoleUnknown {
			continue
		}
		dir.byID[record.ID] = role
		seen[role] = true
	}
	for _, required := range []Role{RolePlayer, RoleOwner, RoleAdmin} {
		if !seen[required] {
			return nil, fmt.Errorf("role %s is not defined", required)
		}
	}
	return dir, nil
}

// LoadRoleDirectory reads the role table once.
func LoadRoleDirectory(ctx context.Context, lister RoleLister) (*RoleDirectory, error) {
	records, err := lister.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return NewRoleDirectory(records)
}

// Resolve returns RoleUnknown for ids outside the directory.
func (d *RoleDirectory) Resolve(roleID int64) Role {
	if d == nil {
		return RoleUnknown
	}
	return d.byID[roleID]
}
