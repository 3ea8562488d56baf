package progress

import "github.com/magabrotheeeer/course-progress/internal/models"

// ResolveBySerial выбирает одну запись среди пользователей с одинаковым кодом входа.
//
// Порядок выбора: больший уровень, затем больше сданных экзаменов в устаревшем
// прогрессе, затем первая встреченная запись. Функция ничего не удаляет и
// при неизменных данных всегда возвращает одну и ту же запись.
func ResolveBySerial(candidates []*models.User) (*models.User, error) {
	var best *models.User
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if best == nil || outranks(c, best) {
			best = c
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func outranks(a, b *models.User) bool {
	if a.CurrentStage != b.CurrentStage {
		return a.CurrentStage > b.CurrentStage
	}
	return len(a.Progress.CompletedExams) > len(b.Progress.CompletedExams)
}
