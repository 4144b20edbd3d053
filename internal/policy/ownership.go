package policy

import (
	"context"

	"github.com/diewo77/go-katalog/internal/gate"
)

// Ownable is a record that belongs to exactly one account: a listing to its
// seller, an offer to its bidder, a membership payment to its applicant.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy admits a session user to a record they own, whatever the
// action. Handlers load the record before asking, so a nil resource means
// there is nothing to grant access to and is refused, as is any value that
// does not name an owner.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy { return &OwnershipPolicy{} }

func (*OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	owned, ok := resource.(Ownable)
	return ok && owned.GetUserID() == userID
}

// AdminBypassPolicy is used for records the dashboard inspects on behalf of
// their owner (membership payment proofs and invoices). Administrators are
// admitted outright; everyone else goes through owner.
type AdminBypassPolicy struct {
	owner   gate.Policy[uint]
	isAdmin func(ctx context.Context, userID uint) bool
}

// NewAdminBypassPolicy puts owner behind an administrator check. isAdmin is
// consulted on every call, so a revoked role takes effect immediately.
func NewAdminBypassPolicy(owner gate.Policy[uint], isAdmin func(ctx context.Context, userID uint) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{owner: owner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	return p.isAdmin(ctx, userID) || p.owner.Can(ctx, userID, action, resource)
}
