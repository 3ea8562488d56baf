package models

// TrainingUpdate — частичное обновление записи пользователя, адресованное
// по путям полей: запись одного курса, список завершённых курсов и уровень.
type TrainingUpdate struct {
	CourseKey        string
	Course           CourseProgress
	CompletedCourses []int
	CurrentStage     Stage
}

// LegacyUpdate — частичное обновление устаревшего прогресса.
// Scores == nil означает, что поле не изменяется.
type LegacyUpdate struct {
	OpenedCourses  []int
	CompletedExams []int
	Scores         []int
	CurrentStage   Stage
}
