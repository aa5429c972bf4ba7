package domain

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Roles that may act on the orders of every customer.
var privilegedRoles = []string{"admin", "employee"}

// AuthorizedUser is the caller the gateway authenticated. Requests without
// one come from inside the mesh and are not restricted.
type AuthorizedUser struct {
	ID    uuid.UUID
	Roles []string
}

// Privileged reports whether the user may act on any customer's orders.
func (u AuthorizedUser) Privileged() bool {
	return slices.ContainsFunc(u.Roles, func(role string) bool {
		return slices.Contains(privilegedRoles, role)
	})
}

type authorizedUserKey struct{}

func WithAuthorizedUser(ctx context.Context, user AuthorizedUser) context.Context {
	return context.WithValue(ctx, authorizedUserKey{}, user)
}

func AuthorizedUserFrom(ctx context.Context) (AuthorizedUser, bool) {
	user, ok := ctx.Value(authorizedUserKey{}).(AuthorizedUser)
	return user, ok
}

// restrictedUser returns the user whose access is limited to their own orders.
func restrictedUser(ctx context.Context) (AuthorizedUser, bool) {
	user, ok := AuthorizedUserFrom(ctx)
	return user, ok && !user.Privileged()
}

// authorizeOrder checks that a restricted user owns o.
func authorizeOrder(ctx context.Context, o Order) error {
	user, restricted := restrictedUser(ctx)
	if !restricted || (o.CustomerID != nil && *o.CustomerID == user.ID) {
		return nil
	}
	return &ForbiddenError{UserID: user.ID, Action: "access order " + o.ID.String()}
}

// authorizeCustomer resolves the customer a restricted user acts for. An
// unset customer defaults to the user; a different one is forbidden.
func authorizeCustomer(ctx context.Context, customer *uuid.UUID, action string) (*uuid.UUID, error) {
	user, restricted := restrictedUser(ctx)
	if !restricted {
		return customer, nil
	}
	if customer == nil {
		id := user.ID
		return &id, nil
	}
	if *customer != user.ID {
		return nil, &ForbiddenError{UserID: user.ID, Action: action + " for customer " + customer.String()}
	}
	return customer, nil
}
