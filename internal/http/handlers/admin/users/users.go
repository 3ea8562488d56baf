// Package users отдаёт администратору сокращённый список учащихся.
package users

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

// Service возвращает список пользователей.
type Service interface {
	ListUsersBasic(ctx context.Context) ([]models.BasicUser, error)
}

// Handler обрабатывает GET /admin/users/basic.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список учащихся
// @Description Id, код входа и имя учащихся с заполненными кодом и именем.
// @Tags Admin
// @Produce json
// @Param X-Admin-Token header string false "Токен администратора"
// @Success 200 {object} response.Response{data=[]models.BasicUser}
// @Router /admin/users/basic [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.users"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	list, err := h.service.ListUsersBasic(r.Context())
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"users": list,
	}))
}
