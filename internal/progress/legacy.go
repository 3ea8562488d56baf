package progress

import (
	"slices"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// LegacyPatch — обновление устаревшего прогресса без разбивки на части.
// nil-поля не меняют сохранённые значения.
type LegacyPatch struct {
	OpenedCourses  []int `json:"openedCourses,omitempty"`
	CompletedExams []int `json:"completedExams,omitempty"`
	Scores         []int `json:"scores,omitempty"`
}

// LegacyResult — итог слияния устаревшего прогресса.
type LegacyResult struct {
	User   models.User
	Update models.LegacyUpdate
}

// MergeLegacyProgress объединяет списки открытых курсов и сданных экзаменов
// и пересчитывает уровень по непрерывной серии сданных курсов начиная с первого.
// Оценки заменяются входящими, только если входящий список не короче сохранённого.
func MergeLegacyProgress(user models.User, patch LegacyPatch) LegacyResult {
	opened := sortedUnique(user.Progress.OpenedCourses, patch.OpenedCourses)
	completed := sortedUnique(user.Progress.CompletedExams, patch.CompletedExams)

	scores := slices.Clone(user.Progress.Scores)
	var scoresUpdate []int
	if patch.Scores != nil {
		if len(patch.Scores) >= len(user.Progress.Scores) {
			scores = slices.Clone(patch.Scores)
		}
		scoresUpdate = scores
		if scoresUpdate == nil {
			scoresUpdate = []int{}
		}
	}

	stage := ratchet(existingStage(user.CurrentStage), LegacyStage(completed))

	out := user
	out.CurrentStage = stage
	out.Progress = models.LegacyProgress{
		OpenedCourses:  opened,
		CompletedExams: completed,
		Scores:         scores,
	}
	return LegacyResult{
		User: out,
		Update: models.LegacyUpdate{
			OpenedCourses:  opened,
			CompletedExams: completed,
			Scores:         scoresUpdate,
			CurrentStage:   stage,
		},
	}
}

// LegacyStage считает уровень по числу k курсов, сданных подряд начиная с первого:
// 8 при k >= 8, 7.5 при k == 7, иначе max(k, 1).
func LegacyStage(completedExams []int) models.Stage {
	k := 0
	for contains(completedExams, k+1) {
		k++
	}
	switch {
	case k >= 8:
		return models.StageMax
	case k == 7:
		return models.StageBetween
	default:
		return models.Stage(max(k, 1))
	}
}
