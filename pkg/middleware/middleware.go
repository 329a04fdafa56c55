// Package middleware holds the echo middleware and header helpers shared by the
// backend and its client.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const (
	AuthorizationHeader = "Authorization"
	Bearer              = "Bearer "
)

// CodeTooManyRequests is the envelope code of a throttled request.
const CodeTooManyRequests = "TOO_MANY_REQUESTS"

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(h http.Header) (string, bool) {
	authorization := h.Get(AuthorizationHeader)
	if !strings.HasPrefix(authorization, Bearer) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, Bearer))
	return token, token != ""
}

func SetBearer(h http.Header, token string) {
	if token != "" {
		h.Set(AuthorizationHeader, Bearer+token)
	}
}

// NewRateLimiter limits requests per client IP. Rejections go through the echo error
// handler like any other HTTP error.
func NewRateLimiter(rps rate.Limit) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rps,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(echo.Context, string, error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, CodeTooManyRequests)
		},
	})
}

func statusLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

func RequestLoggerConfig(log *zap.Logger) middleware.RequestLoggerConfig {
	log = log.Named("echo")
	return middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		HandleError:  true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Log(statusLevel(v.Status), "request",
				zap.String("URI", v.URI),
				zap.String("Method", v.Method),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	}
}
