package progress

import (
	"time"

	"github.com/magabrotheeeer/course-progress/internal/lib/month"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

// SeasonMonths — длительность сезона в календарных месяцах.
const SeasonMonths = 6

// SeasonState — вычисленное состояние сезона на момент now.
type SeasonState struct {
	StartDate     time.Time `json:"seasonStartDate"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Expired       bool      `json:"expired"`
	DaysRemaining int       `json:"daysRemaining"`
}

// SeasonExpiresAt возвращает момент окончания сезона.
func SeasonExpiresAt(season models.Season) time.Time {
	return month.Add(season.StartDate, SeasonMonths)
}

// DeriveSeason считает срок окончания сезона, признак истечения и остаток дней.
func DeriveSeason(season models.Season, now time.Time) SeasonState {
	expiresAt := SeasonExpiresAt(season)
	expired := now.After(expiresAt)

	days := 0
	if !expired {
		days = month.DaysUntil(now, expiresAt)
	}
	return SeasonState{
		StartDate:     season.StartDate,
		ExpiresAt:     expiresAt,
		Expired:       expired,
		DaysRemaining: days,
	}
}
