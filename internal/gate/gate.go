// Package gate is a small policy registry for resource-level authorization.
// A Gate maps resource type names ("product", "offer", ...) to a Policy and
// answers "may this subject perform this action on that resource". It knows
// nothing about HTTP or the marketplace models.
//
// The subject type is generic:
//   - Gate[uint] for session user IDs
//   - Gate[*models.User] when the caller already holds the user
package gate

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated is returned when the subject is the zero value.
	ErrUnauthenticated = errors.New("gate: no subject")
	// ErrForbidden is returned when a registered policy denies the action.
	ErrForbidden = errors.New("gate: forbidden")
	// ErrNoPolicyDefined is returned when nothing is registered for the resource type.
	ErrNoPolicyDefined = errors.New("gate: no policy defined for resource")
)

// Policy decides whether user may perform action on resource.
// resource may be nil for list/create style checks.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// Gate is the central authorization checkpoint.
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// New returns an empty Gate.
func New[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register sets the policy for resourceType, replacing any previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil when user may perform action on resource.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthenticated
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, user, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
