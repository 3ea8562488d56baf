// Package course отдаёт состояние одного курса учащегося.
package course

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
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

// Service вычисляет состояние курса пользователя.
type Service interface {
	CourseView(ctx context.Context, id string, courseID int) (progress.UnlockView, error)
}

// Handler обрабатывает GET /users/{id}/courses/{courseId}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Состояние курса
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Id пользователя"
// @Param courseId path int true "Id курса"
// @Success 200 {object} response.Response{data=progress.UnlockView}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/courses/{courseId} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.course"

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

	id := chi.URLParam(r, "id")
	view, err := h.service.CourseView(r.Context(), id, courseID)
	if err != nil {
		log.Error("failed to build course view", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(view))
}
