package progress

import "fmt"

// CheckTrainingAllowed отклоняет обновление, которое продвигает закрытый курс
// или любой курс после окончания сезона. Обновление без продвижения
// (повтор уже сохранённых данных) допускается всегда.
func CheckTrainingAllowed(view UnlockView, advances bool) error {
	if !advances {
		return nil
	}
	if !view.Unlocked {
		return notAllowed(fmt.Sprintf("course %d is locked", view.CourseID))
	}
	if view.SeasonExpired {
		return notAllowed("season has expired")
	}
	return nil
}

// CheckExamAvailable проверяет, можно ли сейчас сдавать экзамен по части partID.
func CheckExamAvailable(view UnlockView, partID int) error {
	switch {
	case !view.Unlocked:
		return notAllowed(fmt.Sprintf("course %d is locked", view.CourseID))
	case view.SeasonExpired:
		return notAllowed("season has expired")
	case !view.Started && !view.LegacyCompleted:
		return notAllowed(fmt.Sprintf("course %d is not started", view.CourseID))
	}
	part, ok := view.Part(partID)
	if !ok {
		return notAllowed(fmt.Sprintf("course %d has no part %d", view.CourseID, partID))
	}
	if !part.Examinable {
		return notAllowed(fmt.Sprintf("exam for part %d is not available", partID))
	}
	return nil
}
