package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// SaveTraining записывает прогресс одного курса по пути {courses,<id>}, список
// завершённых курсов и уровень. Запись выполняется только если версия в базе
// равна version; иначе возвращается ErrStaleWrite.
func (s *Storage) SaveTraining(ctx context.Context, id string, version int64, upd models.TrainingUpdate) (*models.User, error) {
	const op = "storage.SaveTraining"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	course, err := json.Marshal(upd.Course)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	completed, err := json.Marshal(nonNil(upd.CompletedCourses))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users SET
				training_progress = jsonb_set(
					jsonb_set(
						jsonb_set(training_progress, '{courses}', COALESCE(training_progress->'courses', '{}'::jsonb)),
						ARRAY['courses', $3::text], $4::jsonb),
					'{completedCourses}', $5::jsonb),
				current_stage = $6,
				version = version + 1
			  WHERE id = $1 AND version = $2
			  RETURNING ` + userColumns

	row := s.DB.QueryRowContext(ctx, query, id, version, upd.CourseKey, course, completed, float64(upd.CurrentStage))
	u, err := scanUser(row)
	if err != nil {
		return nil, s.saveError(ctx, op, id, err)
	}
	return u, nil
}

// SaveLegacy записывает устаревший прогресс и уровень. Scores == nil оставляет
// сохранённые оценки без изменений.
func (s *Storage) SaveLegacy(ctx context.Context, id string, version int64, upd models.LegacyUpdate) (*models.User, error) {
	const op = "storage.SaveLegacy"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	opened, err := json.Marshal(nonNil(upd.OpenedCourses))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	exams, err := json.Marshal(nonNil(upd.CompletedExams))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var scores []byte
	if upd.Scores != nil {
		if scores, err = json.Marshal(upd.Scores); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	query := `UPDATE users SET
				progress = jsonb_set(
					jsonb_set(
						jsonb_set(progress, '{openedCourses}', $3::jsonb),
						'{completedExams}', $4::jsonb),
					'{scores}', COALESCE($5::jsonb, progress->'scores', '[]'::jsonb)),
				current_stage = $6,
				version = version + 1
			  WHERE id = $1 AND version = $2
			  RETURNING ` + userColumns

	row := s.DB.QueryRowContext(ctx, query, id, version, opened, exams, nullableJSON(scores), float64(upd.CurrentStage))
	u, err := scanUser(row)
	if err != nil {
		return nil, s.saveError(ctx, op, id, err)
	}
	return u, nil
}

// saveError различает отсутствующую запись и устаревшую версию.
func (s *Storage) saveError(ctx context.Context, op, id string, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var exists bool
	if qErr := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); qErr != nil {
		return fmt.Errorf("%s: %w", op, qErr)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrStaleWrite)
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
