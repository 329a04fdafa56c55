// Package circulation builds the reader and staff views of bookings, issuances and
// fines, and runs row actions against the backend.
package circulation

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/catalog"
)

type Backend interface {
	MyLoans(ctx context.Context) ([]api.Loan, error)
	Loans(ctx context.Context, q api.LoanQuery) ([]api.Loan, error)
	Loan(ctx context.Context, id int64) (api.Loan, error)
	Reserve(ctx context.Context, bookID, libraryID int64) (api.Loan, error)
	CancelLoan(ctx context.Context, id int64) (api.Loan, error)
	ApproveLoan(ctx context.Context, id int64) (api.Loan, error)
	IssueLoan(ctx context.Context, id int64) (api.Loan, error)
	ReturnLoan(ctx context.Context, id int64) (api.Loan, error)
	RenewLoan(ctx context.Context, id int64) (api.Loan, error)
	MyFines(ctx context.Context) ([]api.Fine, error)
	Fines(ctx context.Context, q api.FineQuery) ([]api.Fine, error)
	PayFine(ctx context.Context, id int64) (api.Fine, error)
	WriteOffFine(ctx context.Context, id int64) (api.Fine, error)
	MyLibrarian(ctx context.Context) (api.Librarian, error)
}

// Catalog is the part of the reference cache the views join with.
type Catalog interface {
	AllMaterials(ctx context.Context) ([]catalog.Material, error)
	LibraryAddresses(ctx context.Context) (map[int64]string, error)
	InvalidateInventories()
}

type Service struct {
	api     Backend
	catalog Catalog
	guard   *Guard
	now     func() time.Time
	log     *zap.Logger
}

type Option func(s *Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithGuard(g *Guard) Option {
	return func(s *Service) {
		s.guard = g
	}
}

func NewService(backend Backend, cat Catalog, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		api:     backend,
		catalog: cat,
		guard:   NewGuard(),
		now:     time.Now,
		log:     log.Named("circulation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Guard() *Guard {
	return s.guard
}

// lookup loads book titles and, when asked, library addresses. A failed address
// fetch only loses the addresses.
func (s *Service) lookup(ctx context.Context, withAddresses bool) (lookup, error) {
	l := lookup{now: s.now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cards, err := s.catalog.AllMaterials(gctx)
		if err != nil {
			return err
		}
		l.titles = make(map[int64]string, len(cards))
		for _, c := range cards {
			l.titles[c.BookID] = c.Title
		}
		return nil
	})
	if withAddresses {
		g.Go(func() error {
			addrs, err := s.catalog.LibraryAddresses(gctx)
			if err != nil {
				s.log.Warn("library addresses", zap.Error(err))
				return nil
			}
			l.addresses = addrs
			return nil
		})
	}
	return l, g.Wait()
}

// action runs a row action under the busy guard and drops cached availability
// when the action can change it.
func (s *Service) action(kind string, id int64, stock bool, fn func() error) error {
	err := s.guard.Do(key(kind, id), fn)
	if err == nil && stock {
		s.catalog.InvalidateInventories()
	}
	return err
}
