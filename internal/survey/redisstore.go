package survey

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/projectpulse/pulsebot/pkg/models"
)

const redisKeyPrefix = "survey:"

// RedisStore keeps one hash per project key under "survey:<KEY>". HSET is
// atomic per field, so concurrent saves of different questions cannot lose
// each other.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the given address and verifies the connection.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Load reads the full hash for the project key.
func (s *RedisStore) Load(ctx context.Context, projectKey string) (models.SurveyRecord, error) {
	fields, err := s.client.HGetAll(ctx, redisKeyPrefix+projectKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load survey record for %s: %w", projectKey, err)
	}

	record := make(models.SurveyRecord, len(fields))
	for k, v := range fields {
		record[k] = v
	}
	return record, nil
}

// Save writes a single hash field.
func (s *RedisStore) Save(ctx context.Context, projectKey string, question QuestionID, answer string) error {
	if err := s.client.HSet(ctx, redisKeyPrefix+projectKey, string(question), answer).Err(); err != nil {
		return fmt.Errorf("failed to save survey answer for %s/%s: %w", projectKey, question, err)
	}
	return nil
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
