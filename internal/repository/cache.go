package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rindwa/rindwa_api/internal/models"
)

// RedisCache - кэш инцидентов и акторов в Redis
type RedisCache struct {
	redisClient *redis.Client
	incidentTTL time.Duration
	actorTTL    time.Duration
}

func NewRedisCache(redisClient *redis.Client, incidentTTL, actorTTL time.Duration) *RedisCache {
	return &RedisCache{
		redisClient: redisClient,
		incidentTTL: incidentTTL,
		actorTTL:    actorTTL,
	}
}

func incidentKey(id uuid.UUID) string {
	return fmt.Sprintf("incident:%s", id.String())
}

func actorKey(id uuid.UUID) string {
	return fmt.Sprintf("actor:%s", id.String())
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s from cache: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s for cache: %w", key, err)
	}
	if err := c.redisClient.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

func (c *RedisCache) del(ctx context.Context, key string) error {
	if err := c.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s in cache: %w", key, err)
	}
	return nil
}

// setIncidentScript пишет снимок, только если в кэше нет более нового.
// Версия снимка - (updated_at в микросекундах, verification_count).
var setIncidentScript = redis.NewScript(`
local v = tonumber(redis.call('HGET', KEYS[1], 'v') or '-1')
local n = tonumber(redis.call('HGET', KEYS[1], 'n') or '-1')
local nv = tonumber(ARGV[1])
local nn = tonumber(ARGV[2])
if v > nv or (v == nv and n > nn) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'n', ARGV[2], 'data', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

// GetIncident пытается получить инцидент из Redis; (nil, nil) при промахе
func (c *RedisCache) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := incidentKey(id)
	val, err := c.redisClient.HGet(ctx, key, "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s from cache: %w", key, err)
	}
	return incident, nil
}

// SetIncident кэширует снимок инцидента. Снимок старше закэшированного
// отбрасывается, поэтому запоздавшее чтение не затирает результат перехода.
func (c *RedisCache) SetIncident(ctx context.Context, incident *models.Incident) error {
	key := incidentKey(incident.ID)
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal %s for cache: %w", key, err)
	}
	err = setIncidentScript.Run(ctx, c.redisClient, []string{key},
		incident.UpdatedAt.UnixMicro(),
		incident.VerificationCount,
		val,
		c.incidentTTL.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set %s in cache: %w", key, err)
	}
	return nil
}

func (c *RedisCache) InvalidateIncident(ctx context.Context, id uuid.UUID) error {
	return c.del(ctx, incidentKey(id))
}

// GetActor возвращает разрешенного актора; (nil, nil) при промахе
func (c *RedisCache) GetActor(ctx context.Context, id uuid.UUID) (*models.Actor, error) {
	actor := &models.Actor{}
	ok, err := c.get(ctx, actorKey(id), actor)
	if !ok || err != nil {
		return nil, err
	}
	return actor, nil
}

func (c *RedisCache) SetActor(ctx context.Context, actor *models.Actor) error {
	return c.set(ctx, actorKey(actor.ID), actor, c.actorTTL)
}

func (c *RedisCache) InvalidateActor(ctx context.Context, id uuid.UUID) error {
	return c.del(ctx, actorKey(id))
}

// NoopCache ничего не хранит; используется без Redis
type NoopCache struct{}

func (NoopCache) GetIncident(context.Context, uuid.UUID) (*models.Incident, error) { return nil, nil }
func (NoopCache) SetIncident(context.Context, *models.Incident) error             { return nil }
func (NoopCache) InvalidateIncident(context.Context, uuid.UUID) error             { return nil }
func (NoopCache) GetActor(context.Context, uuid.UUID) (*models.Actor, error)      { return nil, nil }
func (NoopCache) SetActor(context.Context, *models.Actor) error                   { return nil }
func (NoopCache) InvalidateActor(context.Context, uuid.UUID) error                { return nil }
