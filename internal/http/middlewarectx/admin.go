package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-progress/internal/http/response"
	"github.com/magabrotheeeer/course-progress/internal/lib/password"
	"github.com/magabrotheeeer/course-progress/internal/lib/sl"
)

// AdminTokenHeader — заголовок с административным токеном.
const AdminTokenHeader = "X-Admin-Token"

// AdminMiddleware сверяет заголовок X-Admin-Token с bcrypt-хешем tokenHash.
// Пустой tokenHash означает, что административные маршруты открыты.
func AdminMiddleware(tokenHash string, log *slog.Logger) func(http.Handler) http.Handler {
	if tokenHash == "" {
		log.Warn("admin token hash is not configured, admin endpoints are open")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AdminMiddleware"

			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				log.Error("missing admin token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing admin token"))
				return
			}
			if err := password.CompareHash(tokenHash, token); err != nil {
				log.Error("invalid admin token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
