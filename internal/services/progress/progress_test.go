package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-progress/internal/catalog"
	"github.com/magabrotheeeer/course-progress/internal/lib/jwt"
	"github.com/magabrotheeeer/course-progress/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/course-progress/internal/models"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

func TestProgressService_Login(t *testing.T) {
	low := &models.User{ID: "a", Serial: "1001", CurrentStage: 2}
	high := &models.User{ID: "b", Serial: "1001", CurrentStage: 5}

	tests := []struct {
		name       string
		serial     string
		setupMocks func(r *RepoMock)
		wantID     string
		wantErr    error
	}{
		{
			name:   "picks record with highest stage",
			serial: " 1001 ",
			setupMocks: func(r *RepoMock) {
				r.On("ListBySerial", mock.Anything, "1001").Return([]*models.User{low, high}, nil).Once()
			},
			wantID: "b",
		},
		{
			name:    "empty serial",
			serial:  "   ",
			wantErr: progress.ErrValidation,
		},
		{
			name:   "unknown serial",
			serial: "404",
			setupMocks: func(r *RepoMock) {
				r.On("ListBySerial", mock.Anything, "404").Return([]*models.User{}, nil).Once()
			},
			wantErr: progress.ErrNotFound,
		},
		{
			name:   "storage error",
			serial: "1001",
			setupMocks: func(r *RepoMock) {
				r.On("ListBySerial", mock.Anything, "1001").Return(nil, context.DeadlineExceeded).Once()
			},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(inSeason)
			if tt.setupMocks != nil {
				tt.setupMocks(f.repo)
			}

			res, err := f.svc.Login(context.Background(), tt.serial)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.User.ID)

			claims, err := f.svc.tokens.ParseToken(res.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, claims.UserID())
			f.repo.AssertExpectations(t)
		})
	}
}

func TestProgressService_GetUser(t *testing.T) {
	user := startedUser([]int{1}, nil)

	t.Run("cache hit", func(t *testing.T) {
		f := newFixture(inSeason)
		f.cache.On("Get", mock.Anything, "user:"+user.ID, mock.Anything).
			Run(func(args mock.Arguments) {
				*args.Get(2).(*models.User) = *user
			}).Return(true, nil).Once()

		got, err := f.svc.GetUser(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Name, got.Name)
		f.repo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("cache miss reads storage and caches", func(t *testing.T) {
		f := newFixture(inSeason)
		f.cache.On("Get", mock.Anything, "user:"+user.ID, mock.Anything).Return(false, nil).Once()
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.cache.On("Set", mock.Anything, "user:"+user.ID, user, 30*time.Second).Return(nil).Once()

		got, err := f.svc.GetUser(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
		f.cache.AssertExpectations(t)
	})

	t.Run("cache failure falls back to storage", func(t *testing.T) {
		f := newFixture(inSeason)
		f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		got, err := f.svc.GetUser(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(inSeason)
		f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
		f.repo.On("GetUser", mock.Anything, "missing").Return(nil, progress.ErrNotFound).Once()

		_, err := f.svc.GetUser(context.Background(), "missing")
		require.ErrorIs(t, err, progress.ErrNotFound)
	})
}

func TestProgressService_Season(t *testing.T) {
	t.Run("stored season", func(t *testing.T) {
		f := newFixture(inSeason)
		stored := models.Season{StartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
		f.repo.On("GetSeason", mock.Anything).Return(stored, nil).Once()

		got, err := f.svc.Season(context.Background())
		require.NoError(t, err)
		assert.Equal(t, stored, got)
	})

	t.Run("falls back to configured start", func(t *testing.T) {
		f := newFixture(inSeason)
		f.repo.On("GetSeason", mock.Anything).Return(models.Season{}, progress.ErrSeasonNotSet).Once()

		state, err := f.svc.SeasonState(context.Background())
		require.NoError(t, err)
		assert.Equal(t, seasonStart, state.StartDate)
		assert.False(t, state.Expired)
		assert.Positive(t, state.DaysRemaining)
	})
}

// slowSeasonRepo держит чтение сезона, пока тест не отпустит release,
// и прерывает его по отмене контекста чтения.
type slowSeasonRepo struct {
	*RepoMock
	season  models.Season
	entered chan struct{}
	release chan struct{}
}

func (r *slowSeasonRepo) GetSeason(ctx context.Context) (models.Season, error) {
	close(r.entered)
	select {
	case <-r.release:
		return r.season, nil
	case <-ctx.Done():
		return models.Season{}, ctx.Err()
	}
}

func TestProgressService_Season_CancelledCallerDoesNotFailOthers(t *testing.T) {
	repo := &slowSeasonRepo{
		RepoMock: &RepoMock{},
		season:   testSeason,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	svc := NewProgressService(repo, &CacheMock{}, nil, catalog.Default(),
		jwt.NewJWTMaker("test-secret", time.Hour), Options{DefaultSeasonStart: seasonStart}, newNoopLogger())

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Season(firstCtx)
		firstErr <- err
	}()
	<-repo.entered

	type result struct {
		season models.Season
		err    error
	}
	second := make(chan result, 1)
	go func() {
		season, err := svc.Season(context.Background())
		second <- result{season, err}
	}()
	// второй вызов должен успеть присоединиться к уже идущему чтению
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, testSeason, got.season)
}

func TestProgressService_Dashboard(t *testing.T) {
	f := newFixture(inSeason)
	user := startedUser([]int{1}, nil)
	f.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	f.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil)
	f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)

	d, err := f.svc.Dashboard(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, d.Courses, 8)
	assert.True(t, d.Courses[0].Unlocked)
	assert.False(t, d.Courses[1].Unlocked)

	view, err := f.svc.CourseView(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.UnlockedPart)
	assert.True(t, view.Parts[0].Examinable)

	_, err = f.svc.CourseView(context.Background(), user.ID, 42)
	require.ErrorIs(t, err, progress.ErrValidation)
}

func TestProgressService_UpdateTraining(t *testing.T) {
	courseID := 1

	t.Run("merges and invalidates cache", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.repo.On("SaveTraining", mock.Anything, user.ID, int64(4), mock.MatchedBy(func(u models.TrainingUpdate) bool {
			return u.CourseKey == "1" && assert.ObjectsAreEqual([]int{1, 2}, u.Course.ReadParts) && u.Course.CompletedAt == nil
		})).Return(user, nil).Once()
		f.cache.On("Invalidate", mock.Anything, "user:"+user.ID).Return(nil).Once()

		_, err := f.svc.UpdateTraining(context.Background(), user.ID, progress.TrainingRequest{
			CourseID:      &courseID,
			TrainingPatch: progress.TrainingPatch{ReadParts: []int{2}},
		})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
		f.cache.AssertExpectations(t)
		f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("retries stale write from a fresh read", func(t *testing.T) {
		f := newFixture(inSeason)
		first := startedUser([]int{1}, nil)
		second := startedUser([]int{1, 3}, nil)
		second.Version = 5
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("GetUser", mock.Anything, first.ID).Return(first, nil).Once()
		f.repo.On("GetUser", mock.Anything, first.ID).Return(second, nil).Once()
		f.repo.On("SaveTraining", mock.Anything, first.ID, int64(4), mock.Anything).Return(nil, progress.ErrStaleWrite).Once()
		f.repo.On("SaveTraining", mock.Anything, first.ID, int64(5), mock.MatchedBy(func(u models.TrainingUpdate) bool {
			return assert.ObjectsAreEqual([]int{1, 2, 3}, u.Course.ReadParts)
		})).Return(second, nil).Once()
		f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := f.svc.UpdateTraining(context.Background(), first.ID, progress.TrainingRequest{
			CourseID:      &courseID,
			TrainingPatch: progress.TrainingPatch{ReadParts: []int{2}},
		})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Times(3)
		f.repo.On("SaveTraining", mock.Anything, user.ID, int64(4), mock.Anything).Return(nil, progress.ErrStaleWrite).Times(3)

		_, err := f.svc.UpdateTraining(context.Background(), user.ID, progress.TrainingRequest{
			CourseID:      &courseID,
			TrainingPatch: progress.TrainingPatch{ReadParts: []int{2}},
		})
		require.ErrorIs(t, err, progress.ErrStaleWrite)
		f.repo.AssertExpectations(t)
		f.cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("rejects locked course without saving", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		locked := 3
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()

		_, err := f.svc.UpdateTraining(context.Background(), user.ID, progress.TrainingRequest{
			CourseID:      &locked,
			TrainingPatch: progress.TrainingPatch{StartedAt: ptr(inSeason.UnixMilli())},
		})
		require.ErrorIs(t, err, progress.ErrNotAllowed)
		f.repo.AssertNotCalled(t, "SaveTraining", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects advancing after season end", func(t *testing.T) {
		f := newFixture(afterSeason)
		user := startedUser([]int{1}, nil)
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()

		_, err := f.svc.UpdateTraining(context.Background(), user.ID, progress.TrainingRequest{
			CourseID:      &courseID,
			TrainingPatch: progress.TrainingPatch{ReadParts: []int{2}},
		})
		require.ErrorIs(t, err, progress.ErrNotAllowed)
	})

	t.Run("completion of a locked or expired course is rejected", func(t *testing.T) {
		lastCourse := 7
		tests := []struct {
			name string
			now  time.Time
			user *models.User
		}{
			{name: "locked course", now: inSeason, user: startedUser([]int{1}, nil)},
			{name: "season expired", now: afterSeason, user: func() *models.User {
				u := startedUser([]int{1}, nil)
				u.CurrentStage = 7
				return u
			}()},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(tt.now)
				f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
				f.repo.On("GetUser", mock.Anything, tt.user.ID).Return(tt.user, nil).Once()

				_, err := f.svc.UpdateTraining(context.Background(), tt.user.ID, progress.TrainingRequest{
					CourseID:      &lastCourse,
					TrainingPatch: progress.TrainingPatch{CompletedAt: ptr(tt.now.UnixMilli())},
				})
				require.ErrorIs(t, err, progress.ErrNotAllowed)
				f.repo.AssertNotCalled(t, "SaveTraining", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("invalid part never reaches storage", func(t *testing.T) {
		f := newFixture(inSeason)

		_, err := f.svc.UpdateTraining(context.Background(), "u1", progress.TrainingRequest{
			CourseID:      &courseID,
			TrainingPatch: progress.TrainingPatch{ReadParts: []int{99}},
		})
		var verr *progress.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "readParts", verr.Field)
		f.repo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("completion publishes event", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1, 2, 3, 4}, []int{1, 2, 3})
		patch := progress.TrainingPatch{PassedParts: []int{4}}
		expected := progress.MergeTrainingProgress(*user, 1, patch.WithCompletion(user.TrainingProgress.Courses["1"], mustCourse(t, f, 1), inSeason))
		saved := expected.User

		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.repo.On("SaveTraining", mock.Anything, user.ID, int64(4), mock.MatchedBy(func(u models.TrainingUpdate) bool {
			return u.Course.CompletedAt != nil && *u.Course.CompletedAt == inSeason.UnixMilli() &&
				u.CurrentStage == 2 && assert.ObjectsAreEqual([]int{1}, u.CompletedCourses)
		})).Return(&saved, nil).Once()
		f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()
		f.events.On("Publish", mock.Anything, rabbitmq.RoutingKeyCourseCompleted, mock.MatchedBy(func(e models.CourseCompletedEvent) bool {
			return e.UserID == user.ID && e.CourseID == 1 && e.CompletedAt == inSeason.UnixMilli() &&
				e.CurrentStage == 2 && e.EventID != ""
		})).Return(errors.New("broker down")).Once()

		got, err := f.svc.UpdateTraining(context.Background(), user.ID, progress.TrainingRequest{
			CourseID:      &courseID,
			TrainingPatch: patch,
		})
		require.NoError(t, err, "publish failure must not fail the update")
		assert.Equal(t, models.Stage(2), got.CurrentStage)
		f.events.AssertExpectations(t)
	})
}

func TestProgressService_UpdateLegacy(t *testing.T) {
	t.Run("merges with retry", func(t *testing.T) {
		f := newFixture(inSeason)
		user := &models.User{ID: "u1", CurrentStage: 1, Version: 1}
		f.repo.On("GetUser", mock.Anything, "u1").Return(user, nil).Twice()
		f.repo.On("SaveLegacy", mock.Anything, "u1", int64(1), mock.Anything).Return(nil, progress.ErrStaleWrite).Once()
		f.repo.On("SaveLegacy", mock.Anything, "u1", int64(1), mock.MatchedBy(func(u models.LegacyUpdate) bool {
			return u.CurrentStage == 2 && assert.ObjectsAreEqual([]int{1, 2}, u.CompletedExams) && u.Scores == nil
		})).Return(user, nil).Once()
		f.cache.On("Invalidate", mock.Anything, "user:u1").Return(nil).Once()

		_, err := f.svc.UpdateLegacy(context.Background(), "u1", progress.LegacyPatch{CompletedExams: []int{2, 1}})
		require.NoError(t, err)
		f.repo.AssertExpectations(t)
	})

	t.Run("invalid course id", func(t *testing.T) {
		f := newFixture(inSeason)
		_, err := f.svc.UpdateLegacy(context.Background(), "u1", progress.LegacyPatch{OpenedCourses: []int{9}})
		require.ErrorIs(t, err, progress.ErrValidation)
	})
}

func TestProgressService_Exam(t *testing.T) {
	t.Run("available exam", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)

		exam, err := f.svc.Exam(context.Background(), user.ID, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, exam.PartID)
		assert.NotEmpty(t, exam.Questions)
	})

	t.Run("unread part", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)

		_, err := f.svc.Exam(context.Background(), user.ID, 1, 2)
		require.ErrorIs(t, err, progress.ErrNotAllowed)
	})
}

func TestProgressService_SubmitExam(t *testing.T) {
	cooldownKey := "examCooldown:11111111-1111-1111-1111-111111111111:1:1"

	t.Run("cooldown active", func(t *testing.T) {
		f := newFixture(inSeason)
		f.cache.On("CooldownRemaining", mock.Anything, cooldownKey).Return(2*time.Minute, nil).Once()

		_, err := f.svc.SubmitExam(context.Background(), "11111111-1111-1111-1111-111111111111", 1, 1, correctAnswers(1, 1))
		require.ErrorIs(t, err, progress.ErrCooldownActive)
		var cerr *progress.CooldownError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, 2*time.Minute, cerr.Remaining)
		f.repo.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("failed attempt starts cooldown", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.cache.On("CooldownRemaining", mock.Anything, cooldownKey).Return(time.Duration(0), nil).Once()
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.cache.On("StartCooldown", mock.Anything, cooldownKey, inSeason, testCooldown).Return(nil).Once()

		res, err := f.svc.SubmitExam(context.Background(), user.ID, 1, 1, wrongAnswers(1, 1))
		require.NoError(t, err)
		assert.False(t, res.Grade.Passed)
		assert.Equal(t, 0, res.Grade.Score)
		assert.Equal(t, 300, res.RetryAfterSeconds)
		f.cache.AssertExpectations(t)
		f.repo.AssertNotCalled(t, "SaveTraining", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("passed attempt marks part passed", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.cache.On("CooldownRemaining", mock.Anything, cooldownKey).Return(time.Duration(0), errors.New("redis down")).Once()
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Twice()
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)
		f.repo.On("SaveTraining", mock.Anything, user.ID, int64(4), mock.MatchedBy(func(u models.TrainingUpdate) bool {
			return assert.ObjectsAreEqual([]int{1}, u.Course.PassedParts) && u.Course.CompletedAt == nil
		})).Return(user, nil).Once()
		f.cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil).Once()

		res, err := f.svc.SubmitExam(context.Background(), user.ID, 1, 1, correctAnswers(1, 1))
		require.NoError(t, err)
		assert.True(t, res.Grade.Passed)
		assert.Equal(t, res.Grade.Total, res.Grade.Score)
		f.repo.AssertExpectations(t)
	})

	t.Run("exam not available", func(t *testing.T) {
		f := newFixture(inSeason)
		user := startedUser([]int{1}, nil)
		f.cache.On("CooldownRemaining", mock.Anything, mock.Anything).Return(time.Duration(0), nil).Once()
		f.repo.On("GetUser", mock.Anything, user.ID).Return(user, nil).Once()
		f.repo.On("GetSeason", mock.Anything).Return(testSeason, nil)

		_, err := f.svc.SubmitExam(context.Background(), user.ID, 1, 3, correctAnswers(1, 3))
		require.ErrorIs(t, err, progress.ErrNotAllowed)
	})
}

func mustCourse(t *testing.T, f *fixture, id int) models.Course {
	t.Helper()
	c, ok := f.svc.catalog.Course(id)
	require.True(t, ok)
	return c
}
