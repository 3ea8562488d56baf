// Package legacy реализует обновление прогресса старой системы: открытые курсы,
// сданные экзамены и оценки.
package legacy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/models"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

// Service вливает обновление устаревшего прогресса.
type Service interface {
	UpdateLegacy(ctx context.Context, id string, patch progress.LegacyPatch) (*models.User, error)
}

// Handler обрабатывает PATCH /users/{id}/progress.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Обновление устаревшего прогресса
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Id пользователя"
// @Param request body progress.LegacyPatch true "Курсы, экзамены и оценки"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/progress [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.progress.legacy"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	patch, err := progress.DecodeLegacyPatch(r.Body)
	if err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	user, err := h.service.UpdateLegacy(r.Context(), id, patch)
	if err != nil {
		log.Error("failed to update legacy progress", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": user,
	}))
}
