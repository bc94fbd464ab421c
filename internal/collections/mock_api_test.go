package collections

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListCollections(ctx context.Context) ([]Collection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Collection), args.Error(1)
}

func (m *MockAPI) CreateCollection(ctx context.Context, name string) (Collection, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(Collection), args.Error(1)
}

func (m *MockAPI) UpdateCollection(ctx context.Context, id, name string) (Collection, error) {
	args := m.Called(ctx, id, name)
	return args.Get(0).(Collection), args.Error(1)
}

func (m *MockAPI) DeleteCollection(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPI) ReorderCollections(ctx context.Context, order []Collection) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}
