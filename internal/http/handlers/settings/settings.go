// Package settings отдаёт глобальные настройки сезона.
package settings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

// Service описывает получение состояния сезона.
type Service interface {
	SeasonState(ctx context.Context) (progress.SeasonState, error)
}

// Handler обрабатывает GET /settings.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Настройки сезона
// @Description Дата начала сезона, дата окончания и число оставшихся дней.
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Response{data=progress.SeasonState}
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /settings [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	state, err := h.service.SeasonState(r.Context())
	if err != nil {
		log.Error("failed to load season", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(state))
}
