package progress

import (
	"time"

	"github.com/magabrotheeeer/course-progress/internal/models"
)

// PartView — вычисленное состояние одной части курса.
type PartView struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	PDFPath    string `json:"pdfPath"`
	Read       bool   `json:"read"`
	Passed     bool   `json:"passed"`
	Readable   bool   `json:"readable"`
	Examinable bool   `json:"examinable"`
}

// UnlockView — всё, что нужно показать пользователю по одному курсу.
// Значения только вычисляются и никогда не сохраняются.
type UnlockView struct {
	CourseID             int        `json:"courseId"`
	Title                string     `json:"title"`
	Unlocked             bool       `json:"unlocked"`
	LegacyCompleted      bool       `json:"legacyCompleted"`
	Started              bool       `json:"started"`
	StartedAt            *int64     `json:"startedAt,omitempty"`
	Completed            bool       `json:"completed"`
	CompletedAt          *int64     `json:"completedAt,omitempty"`
	UnlockedPart         int        `json:"unlockedPart"`
	TotalParts           int        `json:"totalParts"`
	SeasonExpired        bool       `json:"seasonExpired"`
	ExpiresAt            time.Time  `json:"expiresAt"`
	DaysRemaining        int        `json:"daysRemaining"`
	CertificateAvailable bool       `json:"certificateAvailable"`
	Parts                []PartView `json:"parts"`
}

// Part возвращает состояние части по id.
func (v UnlockView) Part(id int) (PartView, bool) {
	for _, p := range v.Parts {
		if p.ID == id {
			return p, true
		}
	}
	return PartView{}, false
}

// Dashboard — состояние всех курсов пользователя.
type Dashboard struct {
	UserID       string       `json:"userId"`
	Name         string       `json:"name"`
	CurrentStage models.Stage `json:"currentStage"`
	Season       SeasonState  `json:"season"`
	Courses      []UnlockView `json:"courses"`
}

// DeriveUnlockState вычисляет, какие части курса доступны для чтения и экзамена,
// завершён ли курс и сколько осталось до конца сезона.
func DeriveUnlockState(user models.User, course models.Course, season models.Season, now time.Time) UnlockView {
	stage := NormalizeStage(user.CurrentStage)
	courseStage := models.Stage(course.ID)

	unlocked := courseStage <= stage
	// Курсы ниже текущего уровня пройдены в старой системе целиком
	legacy := courseStage < stage

	cp := user.TrainingProgress.Courses[CourseKey(course.ID)]
	state := DeriveSeason(season, now)
	started := cp.StartedAt != nil
	total := len(course.Parts)

	unlockedPart := 0
	switch {
	case !unlocked:
	case legacy:
		unlockedPart = total
	case started:
		unlockedPart = min(maxOf(cp.PassedParts)+1, total)
	}

	completed := legacy ||
		contains(user.TrainingProgress.CompletedCourses, course.ID) ||
		coversAll(cp.PassedParts, course.PartIDs())

	view := UnlockView{
		CourseID:             course.ID,
		Title:                course.Title,
		Unlocked:             unlocked,
		LegacyCompleted:      legacy,
		Started:              started,
		StartedAt:            cloneInt64(cp.StartedAt),
		Completed:            completed,
		CompletedAt:          cloneInt64(cp.CompletedAt),
		UnlockedPart:         unlockedPart,
		TotalParts:           total,
		SeasonExpired:        state.Expired,
		ExpiresAt:            state.ExpiresAt,
		DaysRemaining:        state.DaysRemaining,
		CertificateAvailable: completed,
		Parts:                make([]PartView, 0, total),
	}

	for _, p := range course.Parts {
		read := legacy || contains(cp.ReadParts, p.ID)
		passed := legacy || contains(cp.PassedParts, p.ID)
		readable := unlocked && !state.Expired && (started || legacy) && p.ID <= unlockedPart

		view.Parts = append(view.Parts, PartView{
			ID:         p.ID,
			Title:      p.Title,
			PDFPath:    p.PDFPath,
			Read:       read,
			Passed:     passed,
			Readable:   readable,
			Examinable: readable && read && !passed,
		})
	}
	return view
}

// DeriveDashboard вычисляет состояние всех курсов каталога.
// Уровень 7.5 отдаётся как есть, хотя курсы открывает как 8.
func DeriveDashboard(user models.User, courses []models.Course, season models.Season, now time.Time) Dashboard {
	d := Dashboard{
		UserID:       user.ID,
		Name:         user.Name,
		CurrentStage: existingStage(user.CurrentStage),
		Season:       DeriveSeason(season, now),
		Courses:      make([]UnlockView, 0, len(courses)),
	}
	for _, c := range courses {
		d.Courses = append(d.Courses, DeriveUnlockState(user, c, season, now))
	}
	return d
}
