package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStore) IsMember(ctx context.Context, studioId, userId string) (bool, error) {
	args := m.Called(ctx, studioId, userId)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
