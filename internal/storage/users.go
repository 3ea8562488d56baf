package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

const userColumns = `id, name, serial, current_stage, progress, training_progress, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		stage    float64
		legacy   []byte
		training []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Serial, &stage, &legacy, &training, &u.Version); err != nil {
		return nil, err
	}
	u.CurrentStage = models.Stage(stage)
	if err := json.Unmarshal(legacy, &u.Progress); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if err := json.Unmarshal(training, &u.TrainingProgress); err != nil {
		return nil, fmt.Errorf("decode training_progress: %w", err)
	}
	if u.TrainingProgress.Courses == nil {
		u.TrainingProgress.Courses = make(map[string]models.CourseProgress)
	}
	return &u, nil
}

// GetUser возвращает запись пользователя по id.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	// Невалидный uuid не может существовать в таблице
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListBySerial возвращает все записи с кодом serial в порядке добавления.
func (s *Storage) ListBySerial(ctx context.Context, serial string) ([]*models.User, error) {
	const op = "storage.ListBySerial"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE serial = $1 ORDER BY created_at, id`, serial)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectUsers(rows, op)
}

// ListUsers возвращает все записи, сгруппированные по коду входа в порядке добавления.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY serial, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return collectUsers(rows, op)
}

func collectUsers(rows *sql.Rows, op string) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// ListUsersBasic возвращает id, код и имя пользователей, у которых заполнены код и имя.
func (s *Storage) ListUsersBasic(ctx context.Context) ([]models.BasicUser, error) {
	const op = "storage.ListUsersBasic"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, serial, name FROM users
			  WHERE serial <> '' AND name <> ''
			  ORDER BY serial, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]models.BasicUser, 0)
	for rows.Next() {
		var u models.BasicUser
		if err := rows.Scan(&u.ID, &u.Serial, &u.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// CreateUser добавляет учащегося. Используется при заливке данных и в тестах.
func (s *Storage) CreateUser(ctx context.Context, name, serial string, stage models.Stage) (string, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (name, serial, current_stage) VALUES ($1, $2, $3) RETURNING id`,
		name, serial, float64(stage)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// DeleteUsers удаляет записи по id в одной транзакции и возвращает число удалённых.
func (s *Storage) DeleteUsers(ctx context.Context, ids []string) (int, error) {
	const op = "storage.DeleteUsers"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		deleted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return deleted, nil
}

// UpdateNamesBySerial переименовывает всех пользователей с указанными кодами
// в одной транзакции. Пустые после обрезки пробелов коды и имена пропускаются.
func (s *Storage) UpdateNamesBySerial(ctx context.Context, updates []models.NameUpdate) (models.RenameResult, error) {
	const op = "storage.UpdateNamesBySerial"
	result := models.RenameResult{MissingSerials: make([]string, 0)}
	if err := checkCtx(ctx, op); err != nil {
		return result, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range updates {
		serial := strings.TrimSpace(u.Serial)
		name := strings.TrimSpace(u.Name)
		if serial == "" || name == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET name = $2, version = version + 1 WHERE serial = $1`, serial, name)
		if err != nil {
			return models.RenameResult{}, fmt.Errorf("%s: %w", op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return models.RenameResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if n == 0 {
			result.MissingSerials = append(result.MissingSerials, serial)
			continue
		}
		result.UpdatedCount++
	}

	if err := tx.Commit(); err != nil {
		return models.RenameResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
