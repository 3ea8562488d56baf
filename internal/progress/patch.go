package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// Catalog — источник курсов для проверки обновлений.
type Catalog interface {
	Course(id int) (models.Course, bool)
	Courses() []models.Course
}

// TrainingRequest — тело запроса на обновление прогресса по курсу.
type TrainingRequest struct {
	CourseID *int `json:"courseId"`
	TrainingPatch
}

// maxScore — максимальная оценка за экзамен старой системы.
const maxScore = 100

// DecodeTrainingRequest строго разбирает JSON: неизвестные поля и лишние данные
// после объекта считаются ошибкой проверки.
func DecodeTrainingRequest(r io.Reader) (TrainingRequest, error) {
	var req TrainingRequest
	if err := decodeStrict(r, &req); err != nil {
		return TrainingRequest{}, err
	}
	return req, nil
}

// DecodeLegacyPatch строго разбирает JSON обновления устаревшего прогресса.
func DecodeLegacyPatch(r io.Reader) (LegacyPatch, error) {
	var p LegacyPatch
	if err := decodeStrict(r, &p); err != nil {
		return LegacyPatch{}, err
	}
	return p, nil
}

func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("body", "empty request body")
		}
		return invalid("body", "%s", describeDecodeError(err))
	}
	if dec.More() {
		return invalid("body", "unexpected data after JSON object")
	}
	return nil
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field %s must be %s", typeErr.Field, typeErr.Type)
	}
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "json: "); ok {
		return rest
	}
	return msg
}

// Validate проверяет запрос по каталогу до слияния.
func (r TrainingRequest) Validate(cat Catalog) (models.Course, error) {
	if r.CourseID == nil {
		return models.Course{}, invalid("courseId", "is required")
	}
	course, ok := cat.Course(*r.CourseID)
	if !ok {
		return models.Course{}, invalid("courseId", "unknown course %d", *r.CourseID)
	}
	if err := r.TrainingPatch.Validate(course); err != nil {
		return models.Course{}, err
	}
	return course, nil
}

// Validate проверяет, что части существуют в курсе, а метки времени положительны.
func (p TrainingPatch) Validate(course models.Course) error {
	if p.StartedAt != nil && *p.StartedAt <= 0 {
		return invalid("startedAt", "must be a positive unix millisecond timestamp")
	}
	if p.CompletedAt != nil && *p.CompletedAt <= 0 {
		return invalid("completedAt", "must be a positive unix millisecond timestamp")
	}
	if err := validateParts("readParts", p.ReadParts, course); err != nil {
		return err
	}
	return validateParts("passedParts", p.PassedParts, course)
}

func validateParts(field string, ids []int, course models.Course) error {
	for _, id := range ids {
		if id <= 0 {
			return invalid(field, "part id %d must be positive", id)
		}
		if !course.HasPart(id) {
			return invalid(field, "course %d has no part %d", course.ID, id)
		}
	}
	return nil
}

// Validate проверяет id курсов (1..8) и оценки (0..100).
func (p LegacyPatch) Validate() error {
	if err := validateCourseIDs("openedCourses", p.OpenedCourses); err != nil {
		return err
	}
	if err := validateCourseIDs("completedExams", p.CompletedExams); err != nil {
		return err
	}
	for _, s := range p.Scores {
		if s < 0 || s > maxScore {
			return invalid("scores", "score %d out of range 0..%d", s, maxScore)
		}
	}
	return nil
}

func validateCourseIDs(field string, ids []int) error {
	for _, id := range ids {
		if id < int(models.StageMin) || id > int(models.StageMax) {
			return invalid(field, "course id %d out of range %d..%d", id, int(models.StageMin), int(models.StageMax))
		}
	}
	return nil
}
