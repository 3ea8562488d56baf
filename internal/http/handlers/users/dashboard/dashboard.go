// Package dashboard отдаёт состояние всех курсов учащегося: уровень,
// открытые курсы и части, доступные экзамены и срок сезона.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

// Service вычисляет состояние курсов пользователя.
type Service interface {
	Dashboard(ctx context.Context, id string) (progress.Dashboard, error)
}

// Handler обрабатывает GET /users/{id}/dashboard.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Состояние курсов учащегося
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "Id пользователя"
// @Success 200 {object} response.Response{data=progress.Dashboard}
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.dashboard"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	d, err := h.service.Dashboard(r.Context(), id)
	if err != nil {
		log.Error("failed to build dashboard", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(d))
}
