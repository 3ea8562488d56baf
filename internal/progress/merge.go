package progress

import (
	"maps"
	"time"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// TrainingPatch — частичное обновление прогресса по одному курсу.
// Отсутствующие поля (nil) не меняют сохранённые значения.
type TrainingPatch struct {
	StartedAt   *int64 `json:"startedAt,omitempty"`
	ReadParts   []int  `json:"readParts,omitempty"`
	PassedParts []int  `json:"passedParts,omitempty"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
}

// TrainingResult — итог слияния: обновлённый пользователь, частичное обновление
// для хранилища и признак того, что курс завершён именно этим слиянием.
type TrainingResult struct {
	User           models.User
	Update         models.TrainingUpdate
	NewlyCompleted bool
	PreviousStage  models.Stage
}

// MergeTrainingProgress вливает patch в прогресс курса courseID и пересчитывает уровень.
//
// Наборы прочитанных и сданных частей только объединяются, completedAt и startedAt
// не стираются пропущенными полями, уровень не уменьшается. Повторное применение
// того же или более старого patch не меняет результат. Исходный user не изменяется.
func MergeTrainingProgress(user models.User, courseID int, patch TrainingPatch) TrainingResult {
	key := CourseKey(courseID)
	existing := user.TrainingProgress.Courses[key]

	merged := models.CourseProgress{
		StartedAt:   cloneInt64(existing.StartedAt),
		ReadParts:   sortedUnique(existing.ReadParts, patch.ReadParts),
		PassedParts: sortedUnique(existing.PassedParts, patch.PassedParts),
		CompletedAt: cloneInt64(existing.CompletedAt),
	}
	if patch.StartedAt != nil {
		merged.StartedAt = cloneInt64(patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		merged.CompletedAt = cloneInt64(patch.CompletedAt)
	}

	completedCourses := sortedUnique(user.TrainingProgress.CompletedCourses)
	alreadyCompleted := contains(completedCourses, courseID)
	if merged.CompletedAt != nil && !alreadyCompleted {
		completedCourses = sortedUnique(completedCourses, []int{courseID})
	}

	prevStage := existingStage(user.CurrentStage)
	proposed := prevStage
	if contains(completedCourses, courseID) {
		proposed = min(models.Stage(courseID+1), models.StageMax)
	}
	stage := ratchet(prevStage, proposed)

	out := user
	out.CurrentStage = stage
	out.TrainingProgress = models.TrainingProgress{
		Courses:          maps.Clone(user.TrainingProgress.Courses),
		CompletedCourses: completedCourses,
	}
	if out.TrainingProgress.Courses == nil {
		out.TrainingProgress.Courses = make(map[string]models.CourseProgress)
	}
	out.TrainingProgress.Courses[key] = merged

	return TrainingResult{
		User: out,
		Update: models.TrainingUpdate{
			CourseKey:        key,
			Course:           merged,
			CompletedCourses: completedCourses,
			CurrentStage:     stage,
		},
		NewlyCompleted: !alreadyCompleted && contains(completedCourses, courseID),
		PreviousStage:  prevStage,
	}
}

// Advances сообщает, продвигает ли patch прогресс курса: начинает или завершает
// курс либо добавляет новые прочитанные или сданные части.
func (p TrainingPatch) Advances(existing models.CourseProgress) bool {
	if p.StartedAt != nil && existing.StartedAt == nil {
		return true
	}
	if p.CompletedAt != nil && existing.CompletedAt == nil {
		return true
	}
	for _, id := range p.ReadParts {
		if !contains(existing.ReadParts, id) {
			return true
		}
	}
	for _, id := range p.PassedParts {
		if !contains(existing.PassedParts, id) {
			return true
		}
	}
	return false
}

// WithCompletion проставляет completedAt = now, если после слияния сданы все части
// курса, а дата завершения ещё не установлена ни в записи, ни в patch.
func (p TrainingPatch) WithCompletion(existing models.CourseProgress, course models.Course, now time.Time) TrainingPatch {
	if p.CompletedAt != nil || existing.CompletedAt != nil {
		return p
	}
	if !coversAll(sortedUnique(existing.PassedParts, p.PassedParts), course.PartIDs()) {
		return p
	}
	ts := now.UnixMilli()
	p.CompletedAt = &ts
	return p
}
