package progress

import "github.com/magabrotheeeer/course-progress/internal/models"

// Grade — результат проверки экзамена.
type Grade struct {
	Score     int  `json:"score"`
	Total     int  `json:"total"`
	PassScore int  `json:"passScore"`
	Passed    bool `json:"passed"`
}

// GradeExam считает число правильных ответов. answers — номер вопроса → номер
// выбранного варианта; вопросы без ответа считаются неверными.
// Экзамен без вопросов не оценивается и возвращает ErrGradingRejected.
func GradeExam(exam models.Exam, answers map[int]int) (Grade, error) {
	if len(exam.Questions) == 0 {
		return Grade{}, ErrGradingRejected
	}

	score := 0
	for i, q := range exam.Questions {
		if selected, ok := answers[i]; ok && selected == q.CorrectIndex {
			score++
		}
	}
	return Grade{
		Score:     score,
		Total:     len(exam.Questions),
		PassScore: exam.PassScore,
		Passed:    score >= exam.PassScore,
	}, nil
}
