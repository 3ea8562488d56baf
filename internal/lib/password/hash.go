// Package password хеширует и проверяет служебные секреты (токен администратора).
// В конфиге хранится только bcrypt-хеш, сам токен передаётся в заголовке запроса.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret — пустой секрет не хешируется.
var ErrEmptySecret = errors.New("empty secret")

// GetHash возвращает bcrypt-хеш секрета для записи в конфиг.
func GetHash(secret string) (string, error) {
	const op = "password.GetHash"
	if secret == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сравнивает bcrypt-хеш с предъявленным секретом.
// Возвращает nil, если секрет соответствует хешу.
func CompareHash(hash, secret string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
