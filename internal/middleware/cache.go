package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eventbook/ticket-booking/internal/config"
)

// cachedResponse is the stored envelope. Headers travel with the body so
// a cache hit is byte-for-byte what the handler originally sent.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// captureWriter tees the response body into a bounded buffer while
// forwarding everything to the client unchanged.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	overflow bool
	limit    int
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
			w.overflow = true
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewRedisCache caches successful GET responses in Redis. The router
// attaches it to the browse listings only; item inventory changes are
// tolerable for one TTL there, while checkout endpoints must never be
// cached. A nil client disables the middleware entirely.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					h := c.Response().Header()
					for k, vals := range cached.Header {
						if strings.EqualFold(k, "Content-Length") {
							continue
						}
						for _, v := range vals {
							h.Add(k, v)
						}
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(cached.Status)
					_, err := c.Response().Write(cached.Body)
					return err
				}
			}

			cw := &captureWriter{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          cfg.MaxBodyBytes,
			}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Only complete 200s are worth replaying.
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}
			raw, err := json.Marshal(cachedResponse{
				Status: cw.status,
				Header: c.Response().Header().Clone(),
				Body:   cw.buf.Bytes(),
			})
			if err == nil {
				// Detached context: the client already has its response.
				_ = rdb.SetEx(context.Background(), key, raw, cfg.TTL).Err()
			}
			return nil
		}
	}
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error { return next(c) }
}
