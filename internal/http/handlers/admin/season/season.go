// Package season запускает новый сезон с текущего момента.
package season

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

// Service запускает сезон.
type Service interface {
	StartSeason(ctx context.Context) (models.Season, error)
}

// Handler обрабатывает POST /admin/start-season.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Новый сезон
// @Description Устанавливает дату начала сезона равной текущему моменту.
// @Tags Admin
// @Produce json
// @Param X-Admin-Token header string false "Токен администратора"
// @Success 200 {object} response.Response{data=models.Season}
// @Failure 401 {object} response.ErrorResponse
// @Router /admin/start-season [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.season"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	season, err := h.service.StartSeason(r.Context())
	if err != nil {
		log.Error("failed to start season", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("season started", slog.Time("start", season.StartDate))
	render.JSON(w, r, response.StatusOKWithData(season))
}
