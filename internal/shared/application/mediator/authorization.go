package mediator

import (
	"context"

	"github.com/felixgeelhaar/conduit/internal/shared/application"
)

// Principal identifies the acting user of a request.
type Principal struct {
	ID        string
	Name      string
	Anonymous bool
}

// Policy decides whether a principal may execute a request.
// Any concrete type with the right shape qualifies.
type Policy interface {
	IsAllowed(principal Principal, req any) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(principal Principal, req any) bool

// IsAllowed calls f.
func (f PolicyFunc) IsAllowed(principal Principal, req any) bool { return f(principal, req) }

// AllowAll permits every request. The default policy until a deployment
// plugs in its own.
func AllowAll() Policy {
	return PolicyFunc(func(Principal, any) bool { return true })
}

type principalKey struct{}

// WithPrincipal stores the acting principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the acting principal from the context.
// An absent principal is anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{Anonymous: true}
}

// AuthorizationBehavior gates requests on a policy decision before the
// handler runs. A denied request raises a forbidden fault; the rest of the
// pipeline never executes.
type AuthorizationBehavior struct {
	policy Policy
}

// NewAuthorizationBehavior creates an AuthorizationBehavior.
func NewAuthorizationBehavior(policy Policy) *AuthorizationBehavior {
	return &AuthorizationBehavior{policy: policy}
}

// Handle implements Behavior.
func (b *AuthorizationBehavior) Handle(ctx context.Context, req any, next Next) (application.Result, error) {
	principal := PrincipalFromContext(ctx)

	if principal.Anonymous {
		if a, ok := req.(application.AnonymousAllowed); ok && a.AllowAnonymous() {
			return next(ctx)
		}
	}

	if !b.policy.IsAllowed(principal, req) {
		return application.Result{}, application.NewForbidden("Not allowed")
	}
	return next(ctx)
}
