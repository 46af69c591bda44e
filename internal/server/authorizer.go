package server

import (
	"context"

	"github.com/mpruett/studiohub/internal/database"
)

// Authorizer decides whether an identity may join a studio. The membership
// data itself is owned by the external CRUD tier; this is the capability
// injected at join time.
type Authorizer interface {
	CanJoin(ctx context.Context, userId, studioId string) (bool, error)
}

// AllowAll admits every authenticated user to every studio. Used when no
// membership database is configured.
type AllowAll struct{}

func (AllowAll) CanJoin(context.Context, string, string) (bool, error) {
	return true, nil
}

// MembershipAuthorizer answers CanJoin from the studio membership store.
type MembershipAuthorizer struct {
	store database.Store
}

func NewMembershipAuthorizer(store database.Store) *MembershipAuthorizer {
	return &MembershipAuthorizer{store: store}
}

func (a *MembershipAuthorizer) CanJoin(ctx context.Context, userId, studioId string) (bool, error) {
	return a.store.IsMember(ctx, studioId, userId)
}
