package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-progress/internal/models"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) SetSeasonStart(ctx context.Context, start time.Time) error {
	return m.Called(ctx, start).Error(0)
}

func (m *RepoMock) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) ListUsersBasic(ctx context.Context) ([]models.BasicUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BasicUser), args.Error(1)
}

func (m *RepoMock) UpdateNamesBySerial(ctx context.Context, updates []models.NameUpdate) (models.RenameResult, error) {
	args := m.Called(ctx, updates)
	return args.Get(0).(models.RenameResult), args.Error(1)
}

func (m *RepoMock) DeleteUsers(ctx context.Context, ids []string) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService() (*AdminService, *RepoMock, *CacheMock) {
	repo, cache := &RepoMock{}, &CacheMock{}
	return NewAdminService(repo, cache, newNoopLogger()), repo, cache
}

func TestAdminService_StartSeason(t *testing.T) {
	svc, repo, _ := newService()
	now := time.Date(2026, time.October, 1, 10, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	svc.now = func() time.Time { return now }
	repo.On("SetSeasonStart", mock.Anything, now.UTC()).Return(nil).Once()

	season, err := svc.StartSeason(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.UTC(), season.StartDate)
	repo.AssertExpectations(t)

	repo.On("SetSeasonStart", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	_, err = svc.StartSeason(context.Background())
	require.Error(t, err)
}

func TestAdminService_UpdateNames(t *testing.T) {
	tests := []struct {
		name       string
		updates    []models.NameUpdate
		setupMocks func(r *RepoMock)
		want       models.RenameResult
		wantErr    error
	}{
		{
			name:    "renames",
			updates: []models.NameUpdate{{Serial: "1", Name: "A"}, {Serial: "2", Name: "B"}},
			setupMocks: func(r *RepoMock) {
				r.On("UpdateNamesBySerial", mock.Anything, mock.Anything).
					Return(models.RenameResult{UpdatedCount: 1, MissingSerials: []string{"2"}}, nil).Once()
			},
			want: models.RenameResult{UpdatedCount: 1, MissingSerials: []string{"2"}},
		},
		{
			name:    "empty list",
			wantErr: progress.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService()
			if tt.setupMocks != nil {
				tt.setupMocks(repo)
			}
			got, err := svc.UpdateNames(context.Background(), tt.updates)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminService_DeleteDuplicateSerials(t *testing.T) {
	users := []*models.User{
		{ID: "a1", Serial: "100", CurrentStage: 2},
		{ID: "a2", Serial: "100 ", CurrentStage: 4},
		{ID: "a3", Serial: "100", CurrentStage: 4},
		{ID: "b1", Serial: "200", CurrentStage: 1},
		{ID: "c1", Serial: "300", CurrentStage: 1,
			Progress: models.LegacyProgress{CompletedExams: []int{1}}},
		{ID: "c2", Serial: "300", CurrentStage: 1,
			Progress: models.LegacyProgress{CompletedExams: []int{1, 2}}},
		{ID: "e1", Serial: "", CurrentStage: 1},
		{ID: "e2", Serial: " ", CurrentStage: 1},
	}

	t.Run("keeps resolved record", func(t *testing.T) {
		svc, repo, cache := newService()
		repo.On("ListUsers", mock.Anything).Return(users, nil).Once()
		repo.On("DeleteUsers", mock.Anything, []string{"a1", "a3", "c1"}).Return(3, nil).Once()
		cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Times(3)

		res, err := svc.DeleteDuplicateSerials(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Serials)
		assert.Equal(t, []string{"a2", "c2"}, res.Kept)
		assert.Equal(t, 3, res.Deleted)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("dry run deletes nothing", func(t *testing.T) {
		svc, repo, _ := newService()
		repo.On("ListUsers", mock.Anything).Return(users, nil).Once()

		res, err := svc.DeleteDuplicateSerials(context.Background(), true)
		require.NoError(t, err)
		assert.True(t, res.DryRun)
		assert.Equal(t, []string{"a1", "a3", "c1"}, res.DeletedIDs)
		assert.Zero(t, res.Deleted)
		repo.AssertNotCalled(t, "DeleteUsers", mock.Anything, mock.Anything)
	})

	t.Run("no duplicates", func(t *testing.T) {
		svc, repo, _ := newService()
		repo.On("ListUsers", mock.Anything).Return([]*models.User{{ID: "x", Serial: "1"}}, nil).Once()

		res, err := svc.DeleteDuplicateSerials(context.Background(), false)
		require.NoError(t, err)
		assert.Zero(t, res.Serials)
		assert.Empty(t, res.DeletedIDs)
		repo.AssertNotCalled(t, "DeleteUsers", mock.Anything, mock.Anything)
	})

	t.Run("storage error", func(t *testing.T) {
		svc, repo, _ := newService()
		repo.On("ListUsers", mock.Anything).Return(nil, errors.New("db down")).Once()

		_, err := svc.DeleteDuplicateSerials(context.Background(), false)
		require.Error(t, err)
	})
}

func TestAdminService_ListUsersBasic(t *testing.T) {
	svc, repo, _ := newService()
	want := []models.BasicUser{{ID: "1", Serial: "100", Name: "A"}}
	repo.On("ListUsersBasic", mock.Anything).Return(want, nil).Once()

	got, err := svc.ListUsersBasic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
