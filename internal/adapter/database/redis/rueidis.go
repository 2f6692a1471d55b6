package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"taskmanager/internal/core/port"
)

type rueidisRepository struct {
	client rueidis.Client
}

func NewRueidisClient(addr string) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
}

// NewRueidisCacheRepository is the alternative to the go-redis cache for
// deployments already running rueidis clients.
func NewRueidisCacheRepository(client rueidis.Client) port.CacheRepository {
	return &rueidisRepository{client: client}
}

func (r *rueidisRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return r.client.Do(ctx, r.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()).Error()
	}
	cmd := r.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).PxMilliseconds(ttl.Milliseconds()).Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *rueidisRepository) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, nil
	}
	return b, err
}

func (r *rueidisRepository) Delete(ctx context.Context, key string) error {
	return r.client.Do(ctx, r.client.B().Del().Key(key).Build()).Error()
}

func (r *rueidisRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		entry, err := r.client.Do(ctx, r.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return err
		}
		if len(entry.Elements) > 0 {
			if err := r.client.Do(ctx, r.client.B().Del().Key(entry.Elements...).Build()).Error(); err != nil {
				return err
			}
		}
		if entry.Cursor == 0 {
			return nil
		}
		cursor = entry.Cursor
	}
}

func (r *rueidisRepository) Close() error {
	r.client.Close()
	return nil
}
