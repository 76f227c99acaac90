package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const (
	redisExpire  = 120
	redisMaxWait = 120 * time.Second
	redisPort    = "6379/tcp"
	redisImage   = "redis"
	redisTag     = "alpine"
)

// NewRedis starts a throwaway Redis container and returns a client connected
// to it. The test is skipped in -short mode or when no docker daemon answers.
func NewRedis(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container tests skipped in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisMaxWait)
	t.Cleanup(cancel)

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start redis: %v", err)
	}
	_ = resource.Expire(redisExpire) // hard kill if cleanup never runs

	addr := resource.GetHostPort(redisPort)
	pool.MaxWait = redisMaxWait

	var client *redis.Client
	if err := pool.Retry(func() error {
		client = redis.NewClient(&redis.Options{Addr: addr})
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("could not connect to redis: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		if err := pool.Purge(resource); err != nil {
			t.Logf("could not purge redis container: %v", err)
		}
	})
	return ctx, client
}
