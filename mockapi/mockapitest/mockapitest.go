// Package mockapitest starts a seeded in-process backend for tests of its clients.
package mockapitest

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-portal/mockapi"
	"github.com/Astemirdum/library-portal/mockapi/config"
	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

type Server struct {
	*httptest.Server
	Backend *mockapi.Backend
}

// NewServer serves a freshly seeded backend until the test ends.
func NewServer(t testing.TB, opts ...mockapi.Option) *Server {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	store, err := kvstore.Open(ctx, kvstore.Config{
		Driver: kvstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "mockapi.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auth := config.Auth{JWTSecret: "test-secret", TokenTTL: time.Hour, ResetTTL: time.Minute}
	opts = append([]mockapi.Option{mockapi.WithBcryptCost(bcrypt.MinCost)}, opts...)
	backend, err := mockapi.New(ctx, store, kafka.NewLogPublisher(log), auth, log, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return &Server{Server: srv, Backend: backend}
}
