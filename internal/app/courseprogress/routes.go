// Package courseprogress собирает HTTP-приложение трекера прогресса.
package courseprogress

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/course-progress/internal/http/handlers/admin/cleanup"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/admin/rename"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/admin/season"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/admin/users"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/courses"
	examread "github.com/magabrotheeeer/course-progress/internal/http/handlers/exam/read"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/exam/submit"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/health"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/progress/legacy"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/progress/training"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/settings"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/users/course"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/users/dashboard"
	userread "github.com/magabrotheeeer/course-progress/internal/http/handlers/users/read"
	"github.com/magabrotheeeer/course-progress/internal/http/middlewarectx"
	adminservice "github.com/magabrotheeeer/course-progress/internal/services/admin"
	progressservice "github.com/magabrotheeeer/course-progress/internal/services/progress"
)

// Deps — зависимости маршрутов.
type Deps struct {
	Progress       *progressservice.ProgressService
	Admin          *adminservice.AdminService
	Tokens         middlewarectx.TokenParser
	AdminTokenHash string
	LoginRPS       float64
	LoginBurst     int
	Health         map[string]health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
		r.Get("/settings", settings.New(logger, deps.Progress).ServeHTTP)
		r.Get("/courses", courses.New(logger, deps.Progress).ServeHTTP)
		r.With(middlewarectx.RateLimitMiddleware(deps.LoginRPS, deps.LoginBurst, logger)).
			Post("/auth/barcode-login", login.New(logger, deps.Progress).ServeHTTP)

		// Учащийся работает только со своей записью
		r.Route("/users/{id}", func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Use(middlewarectx.OwnerMiddleware(logger))
			r.Get("/", userread.New(logger, deps.Progress).ServeHTTP)
			r.Get("/dashboard", dashboard.New(logger, deps.Progress).ServeHTTP)
			r.Get("/courses/{courseId}", course.New(logger, deps.Progress).ServeHTTP)
			r.Patch("/training", training.New(logger, deps.Progress).ServeHTTP)
			r.Patch("/progress", legacy.New(logger, deps.Progress).ServeHTTP)
			r.Get("/courses/{courseId}/parts/{partId}/exam", examread.New(logger, deps.Progress).ServeHTTP)
			r.Post("/courses/{courseId}/parts/{partId}/exam", submit.New(logger, deps.Progress).ServeHTTP)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.AdminMiddleware(deps.AdminTokenHash, logger))
			r.Post("/start-season", season.New(logger, deps.Admin).ServeHTTP)
			r.Get("/users/basic", users.New(logger, deps.Admin).ServeHTTP)
			r.Patch("/users/names", rename.New(logger, deps.Admin).ServeHTTP)
			r.Post("/cleanup-duplicates", cleanup.New(logger, deps.Admin).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
