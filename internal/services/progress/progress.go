// Package services содержит бизнес-логику прогресса учащихся: вход по коду,
// чтение состояния курсов, слияние обновлений с повтором при конфликте версий,
// выдачу и проверку экзаменов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/course-progress/internal/cache"
	"github.com/magabrotheeeer/course-progress/internal/lib/jwt"
	"github.com/magabrotheeeer/course-progress/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/metrics"
	"github.com/magabrotheeeer/course-progress/internal/models"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

// UserRepository определяет методы хранилища, нужные сервису прогресса.
type UserRepository interface {
	// GetUser возвращает пользователя по id вместе с версией записи.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// ListBySerial возвращает все записи с указанным кодом входа.
	ListBySerial(ctx context.Context, serial string) ([]*models.User, error)
	// SaveTraining сохраняет прогресс по курсу, если версия записи не изменилась.
	SaveTraining(ctx context.Context, id string, version int64, upd models.TrainingUpdate) (*models.User, error)
	// SaveLegacy сохраняет устаревший прогресс, если версия записи не изменилась.
	SaveLegacy(ctx context.Context, id string, version int64, upd models.LegacyUpdate) (*models.User, error)
	// GetSeason возвращает дату начала сезона.
	GetSeason(ctx context.Context) (models.Season, error)
}

// Cache описывает кеш пользователей и паузы между попытками экзамена.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
	StartCooldown(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	CooldownRemaining(ctx context.Context, key string) (time.Duration, error)
}

// EventPublisher отправляет события о завершении курсов.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Catalog — каталог курсов и экзаменов.
type Catalog interface {
	Course(id int) (models.Course, bool)
	Courses() []models.Course
	Exam(courseID, partID int) (models.Exam, error)
}

// Options — настраиваемые параметры сервиса.
type Options struct {
	MaxRetries         int
	ExamCooldown       time.Duration
	UserCacheTTL       time.Duration
	DefaultSeasonStart time.Time
}

// LoginResult — найденный по коду пользователь и его токен.
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// ExamResult — итог попытки экзамена.
type ExamResult struct {
	Grade             progress.Grade `json:"grade"`
	User              *models.User   `json:"user"`
	RetryAfterSeconds int            `json:"retryAfterSeconds,omitempty"`
}

// ProgressService реализует операции над прогрессом учащихся.
type ProgressService struct {
	repo    UserRepository
	cache   Cache
	events  EventPublisher
	catalog Catalog
	tokens  jwt.Maker
	opts    Options
	log     *slog.Logger
	now     func() time.Time
	season  singleflight.Group
}

// NewProgressService создает новый экземпляр ProgressService.
// events может быть nil: тогда события не публикуются.
func NewProgressService(repo UserRepository, cache Cache, events EventPublisher, catalog Catalog,
	tokens jwt.Maker, opts Options, log *slog.Logger) *ProgressService {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &ProgressService{
		repo:    repo,
		cache:   cache,
		events:  events,
		catalog: catalog,
		tokens:  tokens,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func userCacheKey(id string) string {
	return "user:" + id
}

// Login находит запись по коду входа и выдаёт токен. При нескольких записях
// с одним кодом выбирается запись с наибольшим прогрессом.
func (s *ProgressService) Login(ctx context.Context, serial string) (LoginResult, error) {
	const op = "services.Login"

	serial = strings.TrimSpace(serial)
	if serial == "" {
		return LoginResult{}, &progress.ValidationError{Field: "barcodeNumber", Reason: "is required"}
	}
	candidates, err := s.repo.ListBySerial(ctx, serial)
	if err != nil {
		metrics.Login(metrics.ResultError, 0)
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	user, err := progress.ResolveBySerial(candidates)
	if err != nil {
		metrics.Login(metrics.ResultRejected, 0)
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if len(candidates) > 1 {
		s.log.Warn("serial shared by several records",
			slog.String("op", op),
			slog.Int("records", len(candidates)),
			slog.String("user_id", user.ID))
	}
	token, err := s.tokens.GenerateToken(user.ID, user.Serial)
	if err != nil {
		metrics.Login(metrics.ResultError, len(candidates))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.Login(metrics.ResultOK, len(candidates))
	return LoginResult{User: user, Token: token}, nil
}

// GetUser возвращает пользователя по id, используя кеш или хранилище.
func (s *ProgressService) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "services.GetUser"

	key := userCacheKey(id)
	var cached models.User
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read user from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, user, s.opts.UserCacheTTL); err != nil {
		s.log.Warn("failed to cache user", slog.String("key", key), sl.Err(err))
	}
	return user, nil
}

// Season возвращает текущий сезон. Одновременные запросы объединяются в одно
// чтение; каждый ждёт его не дольше собственного ctx. Если сезон ещё не
// сохранён, используется дата из конфигурации.
func (s *ProgressService) Season(ctx context.Context) (models.Season, error) {
	const op = "services.Season"

	// Общее чтение не должно прерываться отменой запроса, который его начал:
	// к нему могут быть присоединены другие запросы.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.season.DoChan("season", func() (any, error) {
		season, err := s.repo.GetSeason(flightCtx)
		if errors.Is(err, progress.ErrSeasonNotSet) {
			return models.Season{StartDate: s.opts.DefaultSeasonStart}, nil
		}
		return season, err
	})
	select {
	case <-ctx.Done():
		return models.Season{}, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.Season{}, fmt.Errorf("%s: %w", op, res.Err)
		}
		return res.Val.(models.Season), nil
	}
}

// SeasonState возвращает сезон вместе со сроком окончания и остатком дней.
func (s *ProgressService) SeasonState(ctx context.Context) (progress.SeasonState, error) {
	season, err := s.Season(ctx)
	if err != nil {
		return progress.SeasonState{}, err
	}
	return progress.DeriveSeason(season, s.now()), nil
}

// Courses возвращает каталог курсов.
func (s *ProgressService) Courses() []models.Course {
	return s.catalog.Courses()
}

// Dashboard вычисляет состояние всех курсов пользователя.
func (s *ProgressService) Dashboard(ctx context.Context, id string) (progress.Dashboard, error) {
	const op = "services.Dashboard"

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return progress.Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}
	season, err := s.Season(ctx)
	if err != nil {
		return progress.Dashboard{}, fmt.Errorf("%s: %w", op, err)
	}
	return progress.DeriveDashboard(*user, s.catalog.Courses(), season, s.now()), nil
}

// CourseView вычисляет состояние одного курса пользователя.
func (s *ProgressService) CourseView(ctx context.Context, id string, courseID int) (progress.UnlockView, error) {
	const op = "services.CourseView"

	course, err := s.course(courseID)
	if err != nil {
		return progress.UnlockView{}, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return progress.UnlockView{}, fmt.Errorf("%s: %w", op, err)
	}
	season, err := s.Season(ctx)
	if err != nil {
		return progress.UnlockView{}, fmt.Errorf("%s: %w", op, err)
	}
	return progress.DeriveUnlockState(*user, course, season, s.now()), nil
}

func (s *ProgressService) course(courseID int) (models.Course, error) {
	course, ok := s.catalog.Course(courseID)
	if !ok {
		return models.Course{}, &progress.ValidationError{Field: "courseId", Reason: fmt.Sprintf("unknown course %d", courseID)}
	}
	return course, nil
}

// UpdateTraining проверяет и вливает обновление прогресса по курсу.
func (s *ProgressService) UpdateTraining(ctx context.Context, id string, req progress.TrainingRequest) (*models.User, error) {
	const op = "services.UpdateTraining"

	course, err := req.Validate(s.catalog)
	if err != nil {
		metrics.ProgressUpdate("training", metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.applyTraining(ctx, op, id, course, req.TrainingPatch)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// applyTraining выполняет чтение-слияние-запись с повтором при конфликте версий.
func (s *ProgressService) applyTraining(ctx context.Context, op, id string, course models.Course, patch progress.TrainingPatch) (*models.User, error) {
	log := s.log.With(slog.String("op", op), slog.String("user_id", id), slog.Int("course_id", course.ID))

	season, err := s.Season(ctx)
	if err != nil {
		metrics.ProgressUpdate("training", metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		user, err := s.repo.GetUser(ctx, id)
		if err != nil {
			metrics.ProgressUpdate("training", metrics.ResultError)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		now := s.now()
		existing := user.TrainingProgress.Courses[progress.CourseKey(course.ID)]
		view := progress.DeriveUnlockState(*user, course, season, now)
		if err := progress.CheckTrainingAllowed(view, patch.Advances(existing)); err != nil {
			metrics.ProgressUpdate("training", metrics.ResultRejected)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		res := progress.MergeTrainingProgress(*user, course.ID, patch.WithCompletion(existing, course, now))
		saved, err := s.repo.SaveTraining(ctx, user.ID, user.Version, res.Update)
		if errors.Is(err, progress.ErrStaleWrite) {
			metrics.StaleWriteRetry("training")
			log.Debug("record changed concurrently, retrying", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			metrics.ProgressUpdate("training", metrics.ResultError)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		metrics.ProgressUpdate("training", metrics.ResultOK)
		s.invalidate(ctx, id)
		if res.NewlyCompleted {
			metrics.CourseCompleted(course.ID)
			log.Info("course completed", slog.Float64("stage", float64(saved.CurrentStage)))
			s.publishCompleted(ctx, saved, course.ID)
		}
		return saved, nil
	}

	metrics.ProgressUpdate("training", metrics.ResultError)
	return nil, fmt.Errorf("%s: %d attempts: %w", op, s.opts.MaxRetries, progress.ErrStaleWrite)
}

// UpdateLegacy проверяет и вливает обновление устаревшего прогресса.
func (s *ProgressService) UpdateLegacy(ctx context.Context, id string, patch progress.LegacyPatch) (*models.User, error) {
	const op = "services.UpdateLegacy"

	if err := patch.Validate(); err != nil {
		metrics.ProgressUpdate("legacy", metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for attempt := 1; attempt <= s.opts.MaxRetries; attempt++ {
		user, err := s.repo.GetUser(ctx, id)
		if err != nil {
			metrics.ProgressUpdate("legacy", metrics.ResultError)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res := progress.MergeLegacyProgress(*user, patch)
		saved, err := s.repo.SaveLegacy(ctx, user.ID, user.Version, res.Update)
		if errors.Is(err, progress.ErrStaleWrite) {
			metrics.StaleWriteRetry("legacy")
			continue
		}
		if err != nil {
			metrics.ProgressUpdate("legacy", metrics.ResultError)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		metrics.ProgressUpdate("legacy", metrics.ResultOK)
		s.invalidate(ctx, id)
		return saved, nil
	}

	metrics.ProgressUpdate("legacy", metrics.ResultError)
	return nil, fmt.Errorf("%s: %d attempts: %w", op, s.opts.MaxRetries, progress.ErrStaleWrite)
}

// Exam возвращает вопросы экзамена по части, если экзамен сейчас доступен.
// Правильные ответы в ответ не попадают.
func (s *ProgressService) Exam(ctx context.Context, id string, courseID, partID int) (models.Exam, error) {
	const op = "services.Exam"

	if _, err := s.examView(ctx, id, courseID, partID); err != nil {
		return models.Exam{}, fmt.Errorf("%s: %w", op, err)
	}
	exam, err := s.exam(courseID, partID)
	if err != nil {
		return models.Exam{}, fmt.Errorf("%s: %w", op, err)
	}
	return exam, nil
}

// SubmitExam оценивает ответы. После неудачной попытки включается пауза,
// после успешной часть отмечается прочитанной и сданной.
func (s *ProgressService) SubmitExam(ctx context.Context, id string, courseID, partID int, answers map[int]int) (ExamResult, error) {
	const op = "services.SubmitExam"

	key := cache.CooldownKey(id, courseID, partID)
	remaining, err := s.cache.CooldownRemaining(ctx, key)
	if err != nil {
		s.log.Warn("failed to read exam cooldown", slog.String("key", key), sl.Err(err))
	}
	if remaining > 0 {
		metrics.ExamAttempt(courseID, metrics.ResultCooldown)
		return ExamResult{}, fmt.Errorf("%s: %w", op, &progress.CooldownError{Remaining: remaining})
	}

	user, err := s.examView(ctx, id, courseID, partID)
	if err != nil {
		return ExamResult{}, fmt.Errorf("%s: %w", op, err)
	}
	exam, err := s.exam(courseID, partID)
	if err != nil {
		return ExamResult{}, fmt.Errorf("%s: %w", op, err)
	}
	grade, err := progress.GradeExam(exam, answers)
	if err != nil {
		return ExamResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !grade.Passed {
		metrics.ExamAttempt(courseID, metrics.ResultFailed)
		if err := s.cache.StartCooldown(ctx, key, s.now(), s.opts.ExamCooldown); err != nil {
			s.log.Warn("failed to start exam cooldown", slog.String("key", key), sl.Err(err))
		}
		return ExamResult{Grade: grade, User: user, RetryAfterSeconds: int(s.opts.ExamCooldown / time.Second)}, nil
	}

	metrics.ExamAttempt(courseID, metrics.ResultPassed)
	course, _ := s.catalog.Course(courseID)
	patch := progress.TrainingPatch{ReadParts: []int{partID}, PassedParts: []int{partID}}
	saved, err := s.applyTraining(ctx, op, id, course, patch)
	if err != nil {
		return ExamResult{}, err
	}
	return ExamResult{Grade: grade, User: saved}, nil
}

// examView проверяет, что экзамен по части сейчас можно сдавать.
func (s *ProgressService) examView(ctx context.Context, id string, courseID, partID int) (*models.User, error) {
	course, err := s.course(courseID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	season, err := s.Season(ctx)
	if err != nil {
		return nil, err
	}
	view := progress.DeriveUnlockState(*user, course, season, s.now())
	if err := progress.CheckExamAvailable(view, partID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ProgressService) exam(courseID, partID int) (models.Exam, error) {
	exam, err := s.catalog.Exam(courseID, partID)
	if err != nil {
		return models.Exam{}, &progress.NotAllowedError{Reason: fmt.Sprintf("no exam for course %d part %d", courseID, partID)}
	}
	return exam, nil
}

func (s *ProgressService) invalidate(ctx context.Context, id string) {
	key := userCacheKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate user cache", slog.String("key", key), sl.Err(err))
	}
}

// publishCompleted отправляет событие о завершении курса. Ошибка только логируется:
// запись в хранилище уже сохранена.
func (s *ProgressService) publishCompleted(ctx context.Context, user *models.User, courseID int) {
	if s.events == nil {
		return
	}
	var completedAt int64
	if cp, ok := user.TrainingProgress.Courses[progress.CourseKey(courseID)]; ok && cp.CompletedAt != nil {
		completedAt = *cp.CompletedAt
	}
	event := models.CourseCompletedEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Name:         user.Name,
		Serial:       user.Serial,
		CourseID:     courseID,
		CompletedAt:  completedAt,
		CurrentStage: user.CurrentStage,
	}
	if err := s.events.Publish(ctx, rabbitmq.RoutingKeyCourseCompleted, event); err != nil {
		metrics.EventPublishFailed()
		s.log.Warn("failed to publish course completion", slog.String("event_id", event.EventID), sl.Err(err))
	}
}
