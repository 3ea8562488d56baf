package progress

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound — пользователь с указанным id или кодом входа не найден.
	ErrNotFound = errors.New("user not found")
	// ErrValidation — обновление прогресса не прошло проверку, запись не изменялась.
	ErrValidation = errors.New("validation failed")
	// ErrStaleWrite — запись изменилась между чтением и сохранением.
	ErrStaleWrite = errors.New("stale write: record changed since read")
	// ErrGradingRejected — экзамен без вопросов не может быть оценён.
	ErrGradingRejected = errors.New("grading rejected: exam has no questions")
	// ErrCooldownActive — повторная попытка экзамена до истечения паузы.
	ErrCooldownActive = errors.New("exam cooldown is active")
	// ErrNotAllowed — действие недоступно в текущем состоянии (курс закрыт, сезон истёк и т.п.).
	ErrNotAllowed = errors.New("action not allowed")
	// ErrSeasonNotSet — дата начала сезона ещё не сохранена.
	ErrSeasonNotSet = errors.New("season start date is not set")
)

// ValidationError описывает конкретное нарушение в обновлении прогресса.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Unwrap позволяет сравнивать ошибку с ErrValidation через errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotAllowedError уточняет, почему действие недоступно.
type NotAllowedError struct {
	Reason string
}

func (e *NotAllowedError) Error() string {
	return "not allowed: " + e.Reason
}

// Unwrap позволяет сравнивать ошибку с ErrNotAllowed через errors.Is.
func (e *NotAllowedError) Unwrap() error {
	return ErrNotAllowed
}

func notAllowed(reason string) error {
	return &NotAllowedError{Reason: reason}
}

// CooldownError сообщает, сколько осталось до следующей попытки экзамена.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("exam cooldown is active: retry in %s", e.Remaining.Round(time.Second))
}

// Unwrap позволяет сравнивать ошибку с ErrCooldownActive через errors.Is.
func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}
