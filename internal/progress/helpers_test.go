package progress

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

func ptr(v int64) *int64 {
	return &v
}

func testCourse(id, parts int) models.Course {
	c := models.Course{ID: id, Title: fmt.Sprintf("Курс %d", id)}
	for p := 1; p <= parts; p++ {
		c.Parts = append(c.Parts, models.Part{
			ID:      p,
			Title:   fmt.Sprintf("Часть %d", p),
			PDFPath: fmt.Sprintf("/pdfs/course%d/part-%02d.pdf", id, p),
		})
	}
	return c
}

type stubCatalog struct {
	courses []models.Course
}

func (s stubCatalog) Course(id int) (models.Course, bool) {
	for _, c := range s.courses {
		if c.ID == id {
			return c, true
		}
	}
	return models.Course{}, false
}

func (s stubCatalog) Courses() []models.Course {
	return s.courses
}

var (
	seasonStart = time.Date(2026, time.February, 8, 0, 0, 0, 0, time.UTC)
	testSeason  = models.Season{StartDate: seasonStart}
	inSeason    = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	afterSeason = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
)

func newUser(stage models.Stage) models.User {
	return models.User{ID: "u1", Name: "Иван", Serial: "1001", CurrentStage: stage}
}
