package progress

import (
	"strconv"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// NormalizeStage приводит уровень к значению, по которому открываются курсы:
// 7.5 открывает курсы так же, как 8, отсутствующий уровень считается первым.
func NormalizeStage(s models.Stage) models.Stage {
	if s == models.StageBetween {
		return models.StageMax
	}
	if s < models.StageMin {
		return models.StageMin
	}
	return s
}

// existingStage возвращает сохранённый уровень, подставляя 1 для пустых записей.
func existingStage(s models.Stage) models.Stage {
	if s < models.StageMin {
		return models.StageMin
	}
	return s
}

// ratchet возвращает больший из уровней: уровень никогда не уменьшается.
func ratchet(current, proposed models.Stage) models.Stage {
	if proposed > current {
		return proposed
	}
	return current
}

// CourseKey — ключ курса в карте trainingProgress.courses.
func CourseKey(courseID int) string {
	return strconv.Itoa(courseID)
}
