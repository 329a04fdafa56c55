package circulation

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/pkg/envelope"
	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/catalog"
)

var (
	ErrNoLibrary      = errors.New("NO_LIBRARY")
	ErrForeignLibrary = errors.New("FOREIGN_LIBRARY")
)

// MyLibrary returns the library the acting librarian is assigned to, nil when there
// is none or the record cannot be read.
func (s *Service) MyLibrary(ctx context.Context) *int64 {
	me, err := s.api.MyLibrarian(ctx)
	if err != nil {
		if !envelope.Is(err, envelope.KindAPI) {
			s.log.Warn("librarian record", zap.Error(err))
		}
		return nil
	}
	return me.LibraryID
}

// canAct checks that a booking row belongs to the librarian's own library.
func canAct(mine *int64, libraryID int64) error {
	if mine == nil {
		return ErrNoLibrary
	}
	if *mine != libraryID {
		return ErrForeignLibrary
	}
	return nil
}

// canReturn also lets a librarian without a library take returns anywhere.
func canReturn(mine *int64, libraryID int64) error {
	if mine != nil && *mine != libraryID {
		return ErrForeignLibrary
	}
	return nil
}

// bookingStatusFilter upper-cases the filter and maps the legacy EXPIRED to CANCELLED.
func bookingStatusFilter(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	if s == "EXPIRED" {
		return string(api.LoanCancelled)
	}
	return s
}

// Bookings is the staff booking list. q may carry Russian status words.
func (s *Service) Bookings(ctx context.Context, q, status string) ([]Booking, error) {
	loans, err := s.api.Loans(ctx, api.LoanQuery{
		Q:      catalog.NormalizeBookingQuery(q),
		Status: bookingStatusFilter(status),
	})
	if err != nil {
		return nil, err
	}
	l, err := s.lookup(ctx, true)
	if err != nil {
		return nil, err
	}
	out := l.bookings(loans)
	sortBookingsByDate(out)
	return out, nil
}

func (s *Service) Issuances(ctx context.Context, q string, status IssuanceStatus) ([]Issuance, error) {
	query := api.LoanQuery{Q: catalog.NormalizeIssuanceQuery(q)}
	if status != "" {
		query.Status = string(status.loanStatus())
	}
	loans, err := s.api.Loans(ctx, query)
	if err != nil {
		return nil, err
	}
	l, err := s.lookup(ctx, true)
	if err != nil {
		return nil, err
	}
	out := l.issuances(loans)
	sortIssuancesByIssued(out)
	return out, nil
}

func (s *Service) Fines(ctx context.Context, q string, state api.FineState) ([]api.Fine, error) {
	fines, err := s.api.Fines(ctx, api.FineQuery{Q: strings.TrimSpace(q), State: string(state)})
	if err != nil {
		return nil, err
	}
	sortFinesByDue(fines)
	return fines, nil
}

// staffBooking runs a booking action after checking the row's library.
func (s *Service) staffBooking(ctx context.Context, id int64, do func(ctx context.Context, id int64) (api.Loan, error)) (Booking, error) {
	var loan api.Loan
	err := s.action("loan", id, true, func() error {
		row, err := s.api.Loan(ctx, id)
		if err != nil {
			return err
		}
		if err := canAct(s.MyLibrary(ctx), row.LibraryID); err != nil {
			return err
		}
		loan, err = do(ctx, id)
		return err
	})
	if err != nil {
		return Booking{}, err
	}
	l, err := s.lookup(ctx, false)
	if err != nil {
		return Booking{}, err
	}
	return l.booking(loan), nil
}

func (s *Service) Approve(ctx context.Context, id int64) (Booking, error) {
	return s.staffBooking(ctx, id, s.api.ApproveLoan)
}

func (s *Service) Issue(ctx context.Context, id int64) (Booking, error) {
	return s.staffBooking(ctx, id, s.api.IssueLoan)
}

func (s *Service) StaffCancel(ctx context.Context, id int64) (Booking, error) {
	return s.staffBooking(ctx, id, s.api.CancelLoan)
}

func (s *Service) Return(ctx context.Context, id int64) error {
	return s.action("loan", id, true, func() error {
		row, err := s.api.Loan(ctx, id)
		if err != nil {
			return err
		}
		if err := canReturn(s.MyLibrary(ctx), row.LibraryID); err != nil {
			return err
		}
		_, err = s.api.ReturnLoan(ctx, id)
		return err
	})
}

func (s *Service) StaffPayFine(ctx context.Context, id int64) (api.Fine, error) {
	return s.PayFine(ctx, id)
}

func (s *Service) WriteOff(ctx context.Context, id int64) (api.Fine, error) {
	var fine api.Fine
	err := s.action("fine", id, false, func() (err error) {
		fine, err = s.api.WriteOffFine(ctx, id)
		return err
	})
	return fine, err
}
