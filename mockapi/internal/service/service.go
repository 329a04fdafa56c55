package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-portal/mockapi/config"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/pkg/kafka"
)

const (
	holdPeriod      = 3 * 24 * time.Hour
	loanPeriod      = 14 * 24 * time.Hour
	renewPeriod     = 7 * 24 * time.Hour
	renewLimit      = 2
	overdueFine     = 100
	overdueFineText = "Просрочка возврата материала"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingApproved  = "booking.approved"
	EventBookingCancelled = "booking.cancelled"
	EventLoanIssued       = "loan.issued"
	EventLoanReturned     = "loan.returned"
	EventLoanRenewed      = "loan.renewed"
	EventFineCreated      = "fine.created"
	EventFinePaid         = "fine.paid"
)

type Service struct {
	log  *zap.Logger
	repo repository.Repository
	pub  kafka.Publisher
	auth config.Auth

	// mu serializes every read-modify-write so availability checks and the
	// writes that depend on them cannot interleave.
	mu sync.Mutex

	now        func() time.Time
	bcryptCost int
}

type Option func(s *Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func NewService(repo repository.Repository, pub kafka.Publisher, auth config.Auth, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:        log.Named("service"),
		repo:       repo,
		pub:        pub,
		auth:       auth,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// emit publishes after the transaction has committed. A publishing failure is
// logged and never fails the request.
func (s *Service) emit(ctx context.Context, typ string, id int64, payload any) {
	ev, err := kafka.NewEvent(typ, strconv.FormatInt(id, 10), payload, s.now())
	if err != nil {
		s.log.Error("event", zap.String("type", typ), zap.Error(err))
		return
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn("publish", zap.String("type", typ), zap.Error(err))
	}
}

type pending struct {
	typ     string
	id      int64
	payload any
}

func (s *Service) flush(ctx context.Context, events []pending) {
	for _, ev := range events {
		s.emit(ctx, ev.typ, ev.id, ev.payload)
	}
}
