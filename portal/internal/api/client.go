// Package api is the typed client of the library backend. Every response is decoded
// through pkg/envelope; every call passes the circuit breaker and is never retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/pkg/circuit_breaker"
	"github.com/Astemirdum/library-portal/pkg/envelope"
	mw "github.com/Astemirdum/library-portal/pkg/middleware"
	"github.com/Astemirdum/library-portal/portal/config"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

type TokenSource interface {
	Token(ctx context.Context) string
}

type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

type Client struct {
	base   string
	client *http.Client
	tokens TokenSource
	cb     circuit_breaker.CircuitBreaker
	log    *zap.Logger
}

// NewBreaker builds the breaker the client expects: API rejections prove the backend
// is reachable and do not count as failures.
func NewBreaker(cfg config.Breaker, opts ...circuit_breaker.Option) circuit_breaker.CircuitBreaker {
	opts = append([]circuit_breaker.Option{
		circuit_breaker.WithFailureFilter(func(err error) bool {
			return err != nil && !envelope.Is(err, envelope.KindAPI)
		}),
	}, opts...)
	return circuit_breaker.New(cfg.RecordLength, cfg.Timeout, cfg.Percentile, cfg.RecoveryRequests, opts...)
}

func New(cfg config.API, cb circuit_breaker.CircuitBreaker, tokens TokenSource, log *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		cb:     cb,
		log:    log.Named("api"),
	}
}

func (c *Client) CB() circuit_breaker.CircuitBreaker {
	return c.cb
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous calls never carry the bearer token
	anonymous bool
}

func (c *Client) do(ctx context.Context, r call, out any) error {
	err := c.cb.Call(func() error {
		return c.roundTrip(ctx, r, out)
	})
	if errors.Is(err, circuit_breaker.ErrOpenCB) {
		return envelope.Transport(err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r call, out any) error {
	target := c.base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader = http.NoBody
	if r.body != nil {
		b := bytes.NewBuffer(nil)
		if err := json.NewEncoder(b).Encode(r.body); err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = b
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return envelope.Transport(err)
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	if !r.anonymous && c.tokens != nil {
		mw.SetBearer(req.Header, c.tokens.Token(ctx))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return envelope.Transport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return envelope.Transport(err)
	}
	if err := envelope.Decode(resp.StatusCode, data, out); err != nil {
		c.log.Debug("request rejected",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return err
	}
	return nil
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.do(ctx, call{method: http.MethodGet, path: path, query: query}, &out)
	return out, err
}

func send[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, call{method: method, path: path, body: body}, &out)
	return out, err
}
