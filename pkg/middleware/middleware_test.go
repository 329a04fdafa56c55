package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.header != "" {
			h.Set(AuthorizationHeader, tt.header)
		}
		token, ok := BearerToken(h)
		require.Equal(t, tt.ok, ok, tt.header)
		require.Equal(t, tt.token, token, tt.header)
	}

	h := http.Header{}
	SetBearer(h, "")
	require.Empty(t, h.Get(AuthorizationHeader))
	SetBearer(h, "xyz")
	require.Equal(t, "Bearer xyz", h.Get(AuthorizationHeader))
}

func TestNewRateLimiter(t *testing.T) {
	t.Parallel()
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewRateLimiter(1))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, http.StatusOK, codes[0])
	require.Equal(t, http.StatusTooManyRequests, codes[2])

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusLevel(t *testing.T) {
	t.Parallel()
	require.Equal(t, zapcore.InfoLevel, statusLevel(http.StatusOK))
	require.Equal(t, zapcore.WarnLevel, statusLevel(http.StatusConflict))
	require.Equal(t, zapcore.ErrorLevel, statusLevel(http.StatusBadGateway))
}
