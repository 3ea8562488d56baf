// Package models содержит доменные структуры учебного трекера: пользователя,
// его прогресс по курсам (новый, по частям, и устаревший, по курсам целиком),
// каталог курсов с экзаменами и глобальные настройки сезона.
package models

// Stage — уровень доступа пользователя к курсам. Допустимы целые значения
// от 1 до 8 и отдельное промежуточное значение 7.5 («между 7 и 8»).
type Stage float64

const (
	// StageMin — минимальный уровень, с которого начинает любой пользователь.
	StageMin Stage = 1
	// StageMax — последний уровень программы.
	StageMax Stage = 8
	// StageBetween — промежуточный уровень после семи пройденных курсов.
	StageBetween Stage = 7.5
)

// Valid сообщает, является ли значение допустимым уровнем.
func (s Stage) Valid() bool {
	if s < StageMin || s > StageMax {
		return false
	}
	return s == StageBetween || s == Stage(int(s))
}

// User представляет учётную запись учащегося так, как она хранится в хранилище.
type User struct {
	ID               string           `json:"id"`               // Идентификатор записи
	Name             string           `json:"name"`             // Имя учащегося
	Serial           string           `json:"serial"`           // Код для входа (может повторяться)
	CurrentStage     Stage            `json:"currentStage"`     // Текущий уровень
	Progress         LegacyProgress   `json:"progress"`         // Устаревший прогресс по курсам
	TrainingProgress TrainingProgress `json:"trainingProgress"` // Прогресс по частям курсов
	Version          int64            `json:"-"`                // Версия записи для оптимистичной блокировки
}

// LegacyProgress — прогресс старой системы без разбивки на части.
type LegacyProgress struct {
	OpenedCourses  []int `json:"openedCourses"`
	CompletedExams []int `json:"completedExams"`
	Scores         []int `json:"scores"`
}

// TrainingProgress — прогресс по частям курсов, ключ карты — id курса строкой.
type TrainingProgress struct {
	Courses          map[string]CourseProgress `json:"courses"`
	CompletedCourses []int                     `json:"completedCourses"`
}

// CourseProgress хранит прогресс одного пользователя по одному курсу.
// Метки времени — миллисекунды Unix; nil означает «ещё не установлено».
type CourseProgress struct {
	StartedAt   *int64 `json:"startedAt,omitempty"`
	ReadParts   []int  `json:"readParts"`
	PassedParts []int  `json:"passedParts"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
}

// BasicUser — сокращённое представление пользователя для административных списков.
type BasicUser struct {
	ID     string `json:"id"`
	Serial string `json:"serial"`
	Name   string `json:"name"`
}

// NameUpdate описывает переименование пользователя по коду входа.
type NameUpdate struct {
	Serial string `json:"serial" yaml:"serial" validate:"required"`
	Name   string `json:"name" yaml:"name" validate:"required"`
}

// RenameResult — итог массового переименования.
type RenameResult struct {
	UpdatedCount   int      `json:"updatedCount"`
	MissingSerials []string `json:"missingSerials"`
}
