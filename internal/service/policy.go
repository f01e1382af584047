package service

import "github.com/amissa/backend/internal/model"

// Scope is the ownership of the resource an actor wants to act on.
// The zero Scope means the whole platform.
type Scope struct {
	DioceseID string
	ParishID  string
}

// ParishScope returns the scope of a parish.
func ParishScope(p *model.Parish) Scope {
	return Scope{DioceseID: p.DioceseID, ParishID: p.ID}
}

// Policy decides whether an actor may manage resources in a scope.
type Policy struct{}

// Allows reports whether actor may act on scope.
func (Policy) Allows(actor *model.Actor, scope Scope) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case model.RoleSuperAdmin, model.RoleOperator:
		return true
	case model.RoleDioceseAdmin:
		return scope.DioceseID != "" && actor.DioceseID == scope.DioceseID
	case model.RoleParishStaff:
		return scope.ParishID != "" && actor.ParishID == scope.ParishID
	}
	return false
}

// Authorize returns ErrForbidden unless actor may act on scope.
func (p Policy) Authorize(actor *model.Actor, scope Scope) error {
	if !p.Allows(actor, scope) {
		return ErrForbidden
	}
	return nil
}
