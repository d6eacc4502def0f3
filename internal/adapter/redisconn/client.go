package redisconn

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Open parses a redis:// URL and waits until the server answers PING.
func Open(ctx context.Context, url string, attempts int, delay time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			return client, nil
		}
		if i >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, errors.Wrap(ctx.Err(), "wait for redis")
		case <-time.After(delay):
		}
	}
	_ = client.Close()
	return nil, errors.Wrapf(err, "redis ping failed after %d attempts", attempts)
}
