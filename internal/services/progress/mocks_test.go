package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/course-progress/internal/catalog"
	"github.com/magabrotheeeer/course-progress/internal/lib/jwt"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ListBySerial(ctx context.Context, serial string) ([]*models.User, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) SaveTraining(ctx context.Context, id string, version int64, upd models.TrainingUpdate) (*models.User, error) {
	args := m.Called(ctx, id, version, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) SaveLegacy(ctx context.Context, id string, version int64, upd models.LegacyUpdate) (*models.User, error) {
	args := m.Called(ctx, id, version, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetSeason(ctx context.Context) (models.Season, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Season), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *CacheMock) StartCooldown(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	return m.Called(ctx, key, at, ttl).Error(0)
}

func (m *CacheMock) CooldownRemaining(ctx context.Context, key string) (time.Duration, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	seasonStart = time.Date(2026, time.February, 8, 0, 0, 0, 0, time.UTC)
	testSeason  = models.Season{StartDate: seasonStart}
	inSeason    = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	afterSeason = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
)

const testCooldown = 5 * time.Minute

type fixture struct {
	repo   *RepoMock
	cache  *CacheMock
	events *PublisherMock
	svc    *ProgressService
}

func newFixture(now time.Time) *fixture {
	f := &fixture{repo: &RepoMock{}, cache: &CacheMock{}, events: &PublisherMock{}}
	f.svc = NewProgressService(f.repo, f.cache, f.events, catalog.Default(),
		jwt.NewJWTMaker("test-secret", time.Hour),
		Options{
			MaxRetries:         3,
			ExamCooldown:       testCooldown,
			UserCacheTTL:       30 * time.Second,
			DefaultSeasonStart: seasonStart,
		}, newNoopLogger())
	f.svc.now = func() time.Time { return now }
	return f
}

func ptr(v int64) *int64 {
	return &v
}

// startedUser — пользователь первого уровня, начавший курс 1.
func startedUser(read, passed []int) *models.User {
	return &models.User{
		ID:           "11111111-1111-1111-1111-111111111111",
		Name:         "Иван",
		Serial:       "1001",
		CurrentStage: 1,
		Version:      4,
		TrainingProgress: models.TrainingProgress{
			Courses: map[string]models.CourseProgress{
				"1": {StartedAt: ptr(inSeason.Add(-time.Hour).UnixMilli()), ReadParts: read, PassedParts: passed},
			},
		},
	}
}

// correctAnswers возвращает ответы, проходящие экзамен по части.
func correctAnswers(courseID, partID int) map[int]int {
	exam, err := catalog.Default().Exam(courseID, partID)
	if err != nil {
		panic(err)
	}
	answers := make(map[int]int, len(exam.Questions))
	for i, q := range exam.Questions {
		answers[i] = q.CorrectIndex
	}
	return answers
}

// wrongAnswers возвращает ответы, в которых все варианты неверны.
func wrongAnswers(courseID, partID int) map[int]int {
	exam, err := catalog.Default().Exam(courseID, partID)
	if err != nil {
		panic(err)
	}
	answers := make(map[int]int, len(exam.Questions))
	for i, q := range exam.Questions {
		answers[i] = (q.CorrectIndex + 1) % len(q.Options)
	}
	return answers
}
