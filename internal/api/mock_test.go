package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/store"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveRun(ctx context.Context, run *model.AssessmentRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*model.AssessmentRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AssessmentRun), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.AssessmentRun, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AssessmentRun), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
