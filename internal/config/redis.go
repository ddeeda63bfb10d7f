package config

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance backing the browse
// response cache and the API rate limiter. Redis is optional here: when
// the startup ping fails the constructor returns nil and both middlewares
// degrade to pass-through, so a Redis outage slows browsing but never
// blocks a checkout.
//
// Variables: REDIS_ADDR (host:port, default localhost:6379) or
// REDIS_HOST + REDIS_PORT, plus optional REDIS_PASSWORD, REDIS_DB and
// REDIS_TLS.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if envBool("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
