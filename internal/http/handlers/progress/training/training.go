// Package training реализует обновление прогресса по частям курса.
//
// Тело запроса разбирается строго: неизвестные поля, части, которых нет в курсе,
// и неположительные метки времени отклоняются до слияния. Слияние только
// добавляет данные, поэтому повтор запроса безопасен.
package training

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

// Service вливает обновление прогресса по курсу.
type Service interface {
	UpdateTraining(ctx context.Context, id string, req progress.TrainingRequest) (*models.User, error)
}

// Handler обрабатывает PATCH /users/{id}/training.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Обновление прогресса по курсу
// @Description Объединяет прочитанные и сданные части, сохраняет даты начала и завершения, пересчитывает уровень.
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Id пользователя"
// @Param request body progress.TrainingRequest true "Частичное обновление курса"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Некорректное обновление"
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Курс закрыт или сезон завершён"
// @Router /users/{id}/training [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.progress.training"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	req, err := progress.DecodeTrainingRequest(r.Body)
	if err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	user, err := h.service.UpdateTraining(r.Context(), id, req)
	if err != nil {
		log.Error("failed to update training progress", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("training progress updated", slog.String("user_id", id), slog.Float64("stage", float64(user.CurrentStage)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": user,
	}))
}
