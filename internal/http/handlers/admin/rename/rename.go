// Package rename реализует массовое переименование учащихся по кодам входа.
package rename

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/models"
)

// Request — список переименований. Пары с пустым кодом или именем пропускаются.
type Request struct {
	Updates []models.NameUpdate `json:"updates" validate:"required,min=1"`
}

// Service переименовывает пользователей.
type Service interface {
	UpdateNames(ctx context.Context, updates []models.NameUpdate) (models.RenameResult, error)
}

// Handler обрабатывает PATCH /admin/users/names.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Массовое переименование
// @Description Меняет имя всем записям с указанным кодом. Возвращает число обновлений и коды, которых нет.
// @Tags Admin
// @Accept json
// @Produce json
// @Param X-Admin-Token header string false "Токен администратора"
// @Param request body Request true "Пары код-имя"
// @Success 200 {object} response.Response{data=models.RenameResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/users/names [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.rename"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.UpdateNames(r.Context(), req.Updates)
	if err != nil {
		log.Error("failed to update names", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("names updated", slog.Int("updated", res.UpdatedCount))
	render.JSON(w, r, response.StatusOKWithData(res))
}
