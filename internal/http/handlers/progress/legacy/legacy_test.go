package legacy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/course-progress/internal/models"
	"github.com/magabrotheeeer/course-progress/internal/progress"
)

type MockService struct{ mock.Mock }

func (m *MockService) UpdateLegacy(ctx context.Context, id string, patch progress.LegacyPatch) (*models.User, error) {
	args := m.Called(ctx, id, patch)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestLegacyHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "семь курсов дают уровень 7.5",
			body: `{"completedExams":[1,2,3,4,5,6,7]}`,
			setupMock: func(m *MockService) {
				m.On("UpdateLegacy", mock.Anything, "u1", progress.LegacyPatch{CompletedExams: []int{1, 2, 3, 4, 5, 6, 7}}).
					Return(&models.User{ID: "u1", CurrentStage: 7.5}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"currentStage":7.5`,
		},
		{
			name:           "неверный тип",
			body:           `{"scores":"high"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field scores must be []int`,
		},
		{
			name: "ошибка проверки в сервисе",
			body: `{"openedCourses":[9]}`,
			setupMock: func(m *MockService) {
				m.On("UpdateLegacy", mock.Anything, "u1", mock.Anything).
					Return(nil, &progress.ValidationError{Field: "openedCourses", Reason: "unknown course 9"})
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `unknown course 9`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockService)
			tt.setupMock(m)

			req := httptest.NewRequest(http.MethodPatch, "/users/u1/progress", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "u1")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			New(logger, m).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			m.AssertExpectations(t)
		})
	}
}
