package database

import (
	"context"
	"fmt"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.SlotLocker = (*redisSlotLocker)(nil)

// releaseScript deletes the lease only if the caller's token still owns it,
// so an expired lease re-acquired by another advance is never released by
// the original holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`

type redisSlotLocker struct {
	client *redis.Client
	script *redis.Script
	logger *zap.Logger
}

// NewRedisSlotLocker creates the Redis-backed lease keyed by chapter slot.
func NewRedisSlotLocker(client *redis.Client, logger *zap.Logger) interfaces.SlotLocker {
	return &redisSlotLocker{
		client: client,
		script: redis.NewScript(releaseScript),
		logger: logger.Named("RedisSlotLocker"),
	}
}

func slotKey(slot models.ChapterSlot) string {
	return fmt.Sprintf("lease:slot:%s:%d:%d", slot.StoryID, slot.BranchNumber, slot.ChapterNumber)
}

// Acquire takes the lease with SET NX PX. Returns models.ErrSlotBusy when
// another advance currently holds it.
func (l *redisSlotLocker) Acquire(ctx context.Context, slot models.ChapterSlot, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, slotKey(slot), token, ttl).Result()
	if err != nil {
		l.logger.Error("Failed to acquire slot lease", zap.Error(err), zap.String("slot", slot.String()))
		return "", fmt.Errorf("failed to acquire lease for %s: %w", slot, err)
	}
	if !ok {
		return "", models.ErrSlotBusy
	}
	l.logger.Debug("Slot lease acquired", zap.String("slot", slot.String()))
	return token, nil
}

// Release frees the lease if token still owns it.
func (l *redisSlotLocker) Release(ctx context.Context, slot models.ChapterSlot, token string) error {
	if err := l.script.Run(ctx, l.client, []string{slotKey(slot)}, token).Err(); err != nil {
		l.logger.Warn("Failed to release slot lease", zap.Error(err), zap.String("slot", slot.String()))
		return fmt.Errorf("failed to release lease for %s: %w", slot, err)
	}
	return nil
}
