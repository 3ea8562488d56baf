// Package read выдаёт вопросы экзамена по части курса без правильных ответов.
package read

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

// Service выдаёт экзамен, если он доступен пользователю.
type Service interface {
	Exam(ctx context.Context, id string, courseID, partID int) (models.Exam, error)
}

// Handler обрабатывает GET /users/{id}/courses/{courseId}/parts/{partId}/exam.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вопросы экзамена
// @Tags Exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Id пользователя"
// @Param courseId path int true "Id курса"
// @Param partId path int true "Id части"
// @Success 200 {object} response.Response{data=models.Exam}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Экзамен недоступен"
// @Router /users/{id}/courses/{courseId}/parts/{partId}/exam [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.exam.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	courseID, err := strconv.Atoi(chi.URLParam(r, "courseId"))
	if err != nil {
		log.Error("failed to decode course id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode course id from url"))
		return
	}
	partID, err := strconv.Atoi(chi.URLParam(r, "partId"))
	if err != nil {
		log.Error("failed to decode part id from url", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode part id from url"))
		return
	}

	id := chi.URLParam(r, "id")
	exam, err := h.service.Exam(r.Context(), id, courseID, partID)
	if err != nil {
		log.Error("exam is not available", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(exam))
}
