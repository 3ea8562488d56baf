package models

import "time"

// Season — глобальное окно времени, в течение которого можно продвигаться по курсам.
type Season struct {
	StartDate time.Time `json:"seasonStartDate"`
}

// CourseCompletedEvent публикуется, когда пользователь впервые завершает курс.
type CourseCompletedEvent struct {
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Serial       string `json:"serial"`
	CourseID     int    `json:"course_id"`
	CompletedAt  int64  `json:"completed_at"`
	CurrentStage Stage  `json:"current_stage"`
}
