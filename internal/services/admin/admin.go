// Package services содержит административные операции: запуск сезона,
// списки пользователей, массовое переименование и чистку дублей кода входа.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/models"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

// AdminRepository определяет методы хранилища для административных операций.
type AdminRepository interface {
	// SetSeasonStart сохраняет дату начала сезона.
	SetSeasonStart(ctx context.Context, start time.Time) error
	// ListUsers возвращает все записи пользователей.
	ListUsers(ctx context.Context) ([]*models.User, error)
	// ListUsersBasic возвращает id, код и имя пользователей с заполненными кодом и именем.
	ListUsersBasic(ctx context.Context) ([]models.BasicUser, error)
	// UpdateNamesBySerial переименовывает пользователей по коду входа.
	UpdateNamesBySerial(ctx context.Context, updates []models.NameUpdate) (models.RenameResult, error)
	// DeleteUsers удаляет записи и возвращает число удалённых.
	DeleteUsers(ctx context.Context, ids []string) (int, error)
}

// Cache — кеш пользователей, который нужно сбрасывать после удаления.
type Cache interface {
	Invalidate(ctx context.Context, key string) error
}

// CleanupResult — итог чистки дублей.
type CleanupResult struct {
	Serials    int      `json:"serials"`
	Kept       []string `json:"kept"`
	DeletedIDs []string `json:"deletedIds"`
	Deleted    int      `json:"deleted"`
	DryRun     bool     `json:"dryRun"`
}

// AdminService реализует административные операции.
type AdminService struct {
	repo  AdminRepository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewAdminService создает новый экземпляр AdminService.
func NewAdminService(repo AdminRepository, cache Cache, log *slog.Logger) *AdminService {
	return &AdminService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// StartSeason начинает новый сезон с текущего момента.
func (s *AdminService) StartSeason(ctx context.Context) (models.Season, error) {
	const op = "services.StartSeason"

	start := s.now().UTC()
	if err := s.repo.SetSeasonStart(ctx, start); err != nil {
		return models.Season{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("new season started", slog.Time("start", start))
	return models.Season{StartDate: start}, nil
}

// ListUsersBasic возвращает сокращённый список пользователей.
func (s *AdminService) ListUsersBasic(ctx context.Context) ([]models.BasicUser, error) {
	const op = "services.ListUsersBasic"

	users, err := s.repo.ListUsersBasic(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// UpdateNames переименовывает пользователей по кодам входа.
// Записи с пустым кодом или именем пропускаются.
func (s *AdminService) UpdateNames(ctx context.Context, updates []models.NameUpdate) (models.RenameResult, error) {
	const op = "services.UpdateNames"

	if len(updates) == 0 {
		return models.RenameResult{}, fmt.Errorf("%s: %w", op,
			&progress.ValidationError{Field: "updates", Reason: "must not be empty"})
	}
	res, err := s.repo.UpdateNamesBySerial(ctx, updates)
	if err != nil {
		return models.RenameResult{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("names updated",
		slog.Int("updated", res.UpdatedCount),
		slog.Int("missing", len(res.MissingSerials)))
	return res, nil
}

// DeleteDuplicateSerials оставляет для каждого кода входа одну запись, ту же,
// что выбирается при входе, и удаляет остальные. При dryRun ничего не удаляется.
func (s *AdminService) DeleteDuplicateSerials(ctx context.Context, dryRun bool) (CleanupResult, error) {
	const op = "services.DeleteDuplicateSerials"

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("%s: %w", op, err)
	}

	groups := make(map[string][]*models.User)
	for _, u := range users {
		serial := strings.TrimSpace(u.Serial)
		if serial == "" {
			continue
		}
		groups[serial] = append(groups[serial], u)
	}

	res := CleanupResult{Kept: []string{}, DeletedIDs: []string{}, DryRun: dryRun}
	serials := make([]string, 0, len(groups))
	for serial, group := range groups {
		if len(group) > 1 {
			serials = append(serials, serial)
		}
	}
	sort.Strings(serials)

	for _, serial := range serials {
		keep, err := progress.ResolveBySerial(groups[serial])
		if err != nil {
			return CleanupResult{}, fmt.Errorf("%s: %w", op, err)
		}
		res.Kept = append(res.Kept, keep.ID)
		for _, u := range groups[serial] {
			if u.ID != keep.ID {
				res.DeletedIDs = append(res.DeletedIDs, u.ID)
			}
		}
	}
	res.Serials = len(serials)

	if dryRun || len(res.DeletedIDs) == 0 {
		return res, nil
	}

	deleted, err := s.repo.DeleteUsers(ctx, res.DeletedIDs)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("%s: %w", op, err)
	}
	res.Deleted = deleted
	for _, id := range res.DeletedIDs {
		if err := s.cache.Invalidate(ctx, "user:"+id); err != nil {
			s.log.Warn("failed to invalidate user cache", slog.String("user_id", id), sl.Err(err))
		}
	}
	s.log.Info("duplicate serials cleaned up",
		slog.Int("serials", res.Serials),
		slog.Int("deleted", deleted))
	return res, nil
}
