// Package submit принимает ответы на экзамен по части курса.
//
// Успешная попытка отмечает часть прочитанной и сданной. После неудачной
// попытки следующая возможна только через паузу; ответ 429 содержит
// заголовок Retry-After.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
	"github.com/magabrotheeeer/course-progress/internal/progress"
	services "github.com/magabrotheeeer/course-progress/internal/services/progress"
)

// Request — ответы на вопросы: номер вопроса → номер выбранного варианта.
type Request struct {
	Answers map[int]int `json:"answers" validate:"required"`
}

// Service оценивает попытку экзамена.
type Service interface {
	SubmitExam(ctx context.Context, id string, courseID, partID int, answers map[int]int) (services.ExamResult, error)
}

// Handler обрабатывает POST /users/{id}/courses/{courseId}/parts/{partId}/exam.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Попытка экзамена
// @Tags Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Id пользователя"
// @Param courseId path int true "Id курса"
// @Param partId path int true "Id части"
// @Param request body Request true "Ответы"
// @Success 200 {object} response.Response{data=services.ExamResult}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Экзамен недоступен"
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse "Пауза после неудачной попытки"
// @Router /users/{id}/courses/{courseId}/parts/{partId}/exam [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.exam.submit"

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

	id := chi.URLParam(r, "id")
	res, err := h.service.SubmitExam(r.Context(), id, courseID, partID, req.Answers)
	if err != nil {
		var cerr *progress.CooldownError
		if errors.As(err, &cerr) {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cerr.Remaining.Seconds()))))
		}
		log.Error("exam submission rejected", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("exam graded",
		slog.String("user_id", id),
		slog.Int("course_id", courseID),
		slog.Int("part_id", partID),
		slog.Bool("passed", res.Grade.Passed))
	render.JSON(w, r, response.StatusOKWithData(res))
}
