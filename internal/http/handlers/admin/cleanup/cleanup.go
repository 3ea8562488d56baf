// Package cleanup удаляет лишние записи с повторяющимся кодом входа.
package cleanup

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	services "github.com/magabrotheeeer/course-progress/internal/services/admin"
)

// Service удаляет дубли.
type Service interface {
	DeleteDuplicateSerials(ctx context.Context, dryRun bool) (services.CleanupResult, error)
}

// Handler обрабатывает POST /admin/cleanup-duplicates.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Чистка дублей
// @Description Для каждого кода оставляет запись, выбираемую при входе, остальные удаляет.
// @Tags Admin
// @Produce json
// @Param X-Admin-Token header string false "Токен администратора"
// @Param dryRun query bool false "Только показать, что будет удалено"
// @Success 200 {object} response.Response{data=services.CleanupResult}
// @Failure 400 {object} response.ErrorResponse
// @Router /admin/cleanup-duplicates [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.cleanup"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	dryRun := false
	if v := r.URL.Query().Get("dryRun"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			log.Error("failed to parse dryRun", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("dryRun must be a boolean"))
			return
		}
		dryRun = parsed
	}

	res, err := h.service.DeleteDuplicateSerials(r.Context(), dryRun)
	if err != nil {
		log.Error("failed to clean up duplicates", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(res))
}
