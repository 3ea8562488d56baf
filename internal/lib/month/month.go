// Package month содержит календарную арифметику по месяцам и дням,
// которая используется при расчёте срока действия сезона.
package month

import (
	"time"
)

const day = 24 * time.Hour

// Add прибавляет n календарных месяцев к t.
// Лишние дни переносятся на следующий месяц: 31 августа + 6 месяцев = 3 марта.
func Add(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// DaysUntil считает, сколько дней осталось от now до end, с округлением вверх.
// Если end уже наступил, возвращает 0.
func DaysUntil(now, end time.Time) int {
	if !end.After(now) {
		return 0
	}

	left := end.Sub(now)
	days := int(left / day)
	// Неполный день считается целым
	if left%day != 0 {
		days++
	}
	return days
}
