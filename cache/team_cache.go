package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arenaone/arena/models"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss возвращается, когда команды нет в кэше.
var ErrCacheMiss = errors.New("cache miss")

// TeamCache — кэш чтения команд с явным TTL и инвалидацией на каждой
// записи. Свежесть никогда не подразумевается: любой мутирующий путь
// обязан вызвать Invalidate.
type TeamCache interface {
	Get(ctx context.Context, teamID int) (*models.Team, error)
	Set(ctx context.Context, team *models.Team) error
	Invalidate(ctx context.Context, teamID int) error
}

type redisTeamCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTeamCache(client *redis.Client, ttl time.Duration) TeamCache {
	return &redisTeamCache{client: client, ttl: ttl}
}

func teamKey(teamID int) string {
	return fmt.Sprintf("team:%d", teamID)
}

func (c *redisTeamCache) Get(ctx context.Context, teamID int) (*models.Team, error) {
	payload, err := c.client.Get(ctx, teamKey(teamID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read team %d from cache: %w", teamID, err)
	}
	var team models.Team
	if err := json.Unmarshal(payload, &team); err != nil {
		// Повреждённая запись равнозначна промаху.
		_ = c.client.Del(ctx, teamKey(teamID)).Err()
		return nil, ErrCacheMiss
	}
	return &team, nil
}

func (c *redisTeamCache) Set(ctx context.Context, team *models.Team) error {
	payload, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("failed to marshal team %d for cache: %w", team.ID, err)
	}
	if err := c.client.Set(ctx, teamKey(team.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache team %d: %w", team.ID, err)
	}
	return nil
}

func (c *redisTeamCache) Invalidate(ctx context.Context, teamID int) error {
	if err := c.client.Del(ctx, teamKey(teamID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate team %d cache: %w", teamID, err)
	}
	return nil
}
