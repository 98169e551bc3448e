// Package authorize implements the role-permission half of the uniform
// policy check: every care service operation asks "may this role perform
// this action on this resource in this hospital" before touching the
// document. Tenant matching and relationship predicates (self, assigned,
// author) stay with the services; this package answers the RBAC question.
package authorize

import (
	"context"
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/carelog/carelog_backend/internal/model"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// casbinModel matches requests (role, hospital, resource, action) against
// policies seeded at startup. Policies are never mutated afterwards, so the
// plain enforcer is safe for concurrent Enforce calls.
const casbinModel = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (r.sub == p.sub || g(r.sub, p.sub, r.dom)) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// IAuthorization is the only thing services should depend on.
type IAuthorization interface {
	// Enforce answers: may role act on resource inside the hospital domain?
	Enforce(ctx context.Context, role model.Role, domain Domain, object Resource, action Action) (bool, error)

	// MustEnforce is convenience for services: ErrForbidden if not allowed.
	MustEnforce(ctx context.Context, role model.Role, domain Domain, object Resource, action Action) error
}

// Authorization is a thin typed wrapper around a casbin enforcer.
type Authorization struct {
	enforcer *casbin.Enforcer
}

// NewAuthorization builds an enforcer from the embedded model and seeds the
// default role policies.
func NewAuthorization() (IAuthorization, error) {
	m, err := casbinmodel.NewModelFromString(casbinModel)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	a := &Authorization{enforcer: e}
	if err := a.seed(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Authorization) Enforce(ctx context.Context, role model.Role, domain Domain, object Resource, action Action) (bool, error) {
	_ = ctx // reserved for tracing

	if !role.Valid() {
		return false, fmt.Errorf("%w: unknown role: %q", ErrInvalidArgs, role)
	}
	if domain == "" {
		return false, fmt.Errorf("%w: domain is empty", ErrInvalidArgs)
	}
	if _, ok := KnownResources[object]; !ok {
		return false, fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok {
		return false, fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}

	return a.enforcer.Enforce(string(role), string(domain), string(object), string(action))
}

func (a *Authorization) MustEnforce(ctx context.Context, role model.Role, domain Domain, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, role, domain, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// MustSameTenant is the tenant-isolation half of the policy check: a
// session may never observe or mutate entities of another hospital,
// regardless of role.
func MustSameTenant(sessionHospital, targetHospital string) error {
	if sessionHospital == "" || targetHospital == "" || sessionHospital != targetHospital {
		return ErrForbidden
	}
	return nil
}
