package middlewarectx

import "github.com/magabrotheeeer/course-progress/internal/lib/jwt"

// TokenParser проверяет JWT и возвращает его claims.
type TokenParser interface {
	ParseToken(token string) (*jwt.CustomClaims, error)
}
