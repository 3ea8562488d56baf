package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// GetSeason возвращает дату начала текущего сезона.
func (s *Storage) GetSeason(ctx context.Context) (models.Season, error) {
	const op = "storage.GetSeason"
	if err := checkCtx(ctx, op); err != nil {
		return models.Season{}, err
	}

	var start time.Time
	err := s.DB.QueryRowContext(ctx, `SELECT season_start_date FROM settings WHERE id = 1`).Scan(&start)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Season{}, fmt.Errorf("%s: %w", op, ErrSeasonNotSet)
	}
	if err != nil {
		return models.Season{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Season{StartDate: start.UTC()}, nil
}

// SetSeasonStart начинает новый сезон с даты start.
func (s *Storage) SetSeasonStart(ctx context.Context, start time.Time) error {
	const op = "storage.SetSeasonStart"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO settings (id, season_start_date) VALUES (1, $1)
			  ON CONFLICT (id) DO UPDATE SET season_start_date = EXCLUDED.season_start_date`
	if _, err := s.DB.ExecContext(ctx, query, start.UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
