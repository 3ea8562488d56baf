package login

import (
	"context"

	services "github.com/magabrotheeeer/course-progress/internal/services/progress"
)

// Service описывает интерфейс бизнес-логики входа по коду.
type Service interface {
	Login(ctx context.Context, serial string) (services.LoginResult, error)
}
