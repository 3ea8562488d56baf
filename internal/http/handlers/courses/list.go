// Package courses отдаёт каталог курсов. Ответы экзаменов в каталог не входят.
package courses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

// Service возвращает курсы каталога.
type Service interface {
	Courses() []models.Course
}

// Handler обрабатывает GET /courses.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Каталог курсов
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Course}
// @Router /courses [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"courses": h.service.Courses(),
	}))
}
