package server

import (
	"context"
	"errors"
	"testing"

	"github.com/mpruett/studiohub/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAllowAll(t *testing.T) {
	ok, err := AllowAll{}.CanJoin(context.Background(), "A", "studio-1")
	assert.NoError(t, err, "expected no error from AllowAll")
	assert.True(t, ok, "expected AllowAll to admit any user")
}

func TestMembershipAuthorizer(t *testing.T) {
	t.Run("member is admitted", func(t *testing.T) {
		store := &database.MockStore{}
		defer store.AssertExpectations(t)
		store.On("IsMember", mock.Anything, "studio-1", "A").Return(true, nil)

		authorizer := NewMembershipAuthorizer(store)
		ok, err := authorizer.CanJoin(context.Background(), "A", "studio-1")
		assert.NoError(t, err, "expected no error for a member check")
		assert.True(t, ok, "expected member to be admitted")
	})

	t.Run("non-member is denied", func(t *testing.T) {
		store := &database.MockStore{}
		defer store.AssertExpectations(t)
		store.On("IsMember", mock.Anything, "studio-1", "B").Return(false, nil)

		authorizer := NewMembershipAuthorizer(store)
		ok, err := authorizer.CanJoin(context.Background(), "B", "studio-1")
		assert.NoError(t, err, "expected no error for a non-member check")
		assert.False(t, ok, "expected non-member to be denied")
	})

	t.Run("store error is propagated", func(t *testing.T) {
		store := &database.MockStore{}
		defer store.AssertExpectations(t)
		store.On("IsMember", mock.Anything, "studio-1", "A").Return(false, errors.New("connection refused"))

		authorizer := NewMembershipAuthorizer(store)
		_, err := authorizer.CanJoin(context.Background(), "A", "studio-1")
		assert.Error(t, err, "expected store error to be propagated")
	})
}
