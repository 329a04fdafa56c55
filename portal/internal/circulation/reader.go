package circulation

import (
	"context"

	"github.com/Astemirdum/library-portal/portal/internal/api"
)

// MyBookings lists the reader's bookings, newest reservation first.
func (s *Service) MyBookings(ctx context.Context) ([]Booking, error) {
	loans, err := s.api.MyLoans(ctx)
	if err != nil {
		return nil, err
	}
	l, err := s.lookup(ctx, true)
	if err != nil {
		return nil, err
	}
	out := l.bookings(loans)
	sortBookingsByReserved(out)
	return out, nil
}

// MyIssuances lists the loans handed out to the reader, latest first.
func (s *Service) MyIssuances(ctx context.Context) ([]Issuance, error) {
	loans, err := s.api.MyLoans(ctx)
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

func (s *Service) MyFines(ctx context.Context) ([]api.Fine, error) {
	fines, err := s.api.MyFines(ctx)
	if err != nil {
		return nil, err
	}
	sortFinesByDue(fines)
	return fines, nil
}

// Reserve books a copy. A zero libraryID lets the backend pick the library with the
// most free copies; the returned booking names the library it chose.
func (s *Service) Reserve(ctx context.Context, bookID, libraryID int64) (Booking, error) {
	var loan api.Loan
	err := s.action("book", bookID, true, func() (err error) {
		loan, err = s.api.Reserve(ctx, bookID, libraryID)
		return err
	})
	if err != nil {
		return Booking{}, err
	}
	l, err := s.lookup(ctx, true)
	if err != nil {
		return Booking{}, err
	}
	return l.booking(loan), nil
}

func (s *Service) CancelBooking(ctx context.Context, id int64) error {
	return s.action("loan", id, true, func() error {
		_, err := s.api.CancelLoan(ctx, id)
		return err
	})
}

func (s *Service) Renew(ctx context.Context, id int64) (Issuance, error) {
	var loan api.Loan
	err := s.action("loan", id, false, func() (err error) {
		loan, err = s.api.RenewLoan(ctx, id)
		return err
	})
	if err != nil {
		return Issuance{}, err
	}
	l, err := s.lookup(ctx, false)
	if err != nil {
		return Issuance{}, err
	}
	items := l.issuances([]api.Loan{loan})
	if len(items) == 0 {
		return Issuance{}, nil
	}
	return items[0], nil
}

func (s *Service) PayFine(ctx context.Context, id int64) (api.Fine, error) {
	var fine api.Fine
	err := s.action("fine", id, false, func() (err error) {
		fine, err = s.api.PayFine(ctx, id)
		return err
	})
	return fine, err
}
