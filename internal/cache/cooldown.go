package cache

import (
	"context"
	"fmt"
	"time"
)

// CooldownKey — ключ паузы после неудачной попытки экзамена.
func CooldownKey(userID string, courseID, partID int) string {
	return fmt.Sprintf("examCooldown:%s:%d:%d", userID, courseID, partID)
}

// StartCooldown запоминает момент неудачной попытки; ключ живёт ttl.
func (c *Cache) StartCooldown(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	const op = "cache.StartCooldown"
	if err := c.Db.Set(ctx, key, at.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CooldownRemaining возвращает, сколько ещё действует пауза. 0 — паузы нет.
func (c *Cache) CooldownRemaining(ctx context.Context, key string) (time.Duration, error) {
	const op = "cache.CooldownRemaining"
	ttl, err := c.Db.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	// -2: ключа нет, -1: ключ без срока жизни
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
