// Package mockapi assembles the self-contained library backend: the document store,
// the circulation service and its HTTP router.
package mockapi

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi/config"
	"github.com/Astemirdum/library-portal/mockapi/internal/handler"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/mockapi/internal/service"
	"github.com/Astemirdum/library-portal/pkg/kafka"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

// Demo accounts created by the seed.
const (
	DemoLibrarianEmail    = service.DemoLibrarianEmail
	DemoLibrarianPassword = service.DemoLibrarianPassword
	DemoReaderEmail       = service.DemoReaderEmail
	DemoReaderPassword    = service.DemoReaderPassword
)

type Backend struct {
	svc    *service.Service
	router http.Handler
}

type options struct {
	service []service.Option
	seed    bool
}

type Option func(o *options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.service = append(o.service, service.WithClock(now))
	}
}

// WithBcryptCost lowers hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(o *options) {
		o.service = append(o.service, service.WithBcryptCost(cost))
	}
}

func WithSeed(seed bool) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// New wires the backend over an open store. Demo fixtures are seeded unless WithSeed(false).
func New(ctx context.Context, store *kvstore.Store, pub kafka.Publisher, auth config.Auth, log *zap.Logger, opts ...Option) (*Backend, error) {
	o := options{seed: true}
	for _, opt := range opts {
		opt(&o)
	}

	repo, err := repository.NewRepository(store, log)
	if err != nil {
		return nil, errors.Wrap(err, "repo")
	}
	svc := service.NewService(repo, pub, auth, log, o.service...)
	if o.seed {
		if err := svc.Seed(ctx); err != nil {
			return nil, errors.Wrap(err, "seed")
		}
	}
	h := handler.New(svc, svc, svc, log)
	return &Backend{svc: svc, router: h.NewRouter()}, nil
}

func (b *Backend) Handler() http.Handler {
	return b.router
}

type SweepResult = service.SweepResult

// Sweep persists overdue issuances, their fines and expired holds.
func (b *Backend) Sweep(ctx context.Context) (SweepResult, error) {
	return b.svc.Sweep(ctx)
}
