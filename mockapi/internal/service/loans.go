package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// toLoan projects a booking and the issuance made from it onto the wire status.
// An OPEN issuance past its deadline reads as OVERDUE even before the sweep persists it.
func toLoan(b model.Booking, iss *model.Issuance, now time.Time) model.BookLoan {
	loan := model.BookLoan{
		ID:            b.ID,
		UserID:        b.UserID,
		BookID:        b.BookID,
		LibraryID:     b.LibraryID,
		Status:        model.LoanStatus(b.Status),
		ReservedAt:    timePtr(b.ReservedAt),
		ReservedUntil: timePtr(b.ReservedUntil),
	}
	if iss == nil {
		return loan
	}
	id := iss.ID
	loan.IssuanceID = &id
	loan.RenewCount = iss.RenewCount
	loan.IssuedAt = timePtr(iss.IssuedAt)
	loan.DueAt = timePtr(iss.DueAt)
	loan.ReturnedAt = iss.ReturnedAt
	switch {
	case iss.Status == model.IssuanceReturned:
		loan.Status = model.LoanReturned
	case iss.Status == model.IssuanceOverdue, iss.DueAt.Before(now):
		loan.Status = model.LoanOverdue
	default:
		loan.Status = model.LoanIssued
	}
	return loan
}

// latestIssuance picks the issuance of a booking, preferring an active one.
func latestIssuance(issuances []model.Issuance, bookingID int64) int {
	found := -1
	for i := range issuances {
		if issuances[i].BookingID != bookingID {
			continue
		}
		if issuances[i].Status.Active() {
			return i
		}
		if found < 0 || issuances[i].ID > issuances[found].ID {
			found = i
		}
	}
	return found
}

func (s *Service) loans(bookings []model.Booking, issuances []model.Issuance) []model.BookLoan {
	now := s.now()
	out := make([]model.BookLoan, 0, len(bookings))
	for _, b := range bookings {
		var iss *model.Issuance
		if i := latestIssuance(issuances, b.ID); i >= 0 {
			iss = &issuances[i]
		}
		out = append(out, toLoan(b, iss, now))
	}
	return out
}

func sortByReservedDesc(loans []model.BookLoan) {
	sort.SliceStable(loans, func(i, j int) bool {
		a, b := loans[i].ReservedAt, loans[j].ReservedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
}

func (s *Service) MyLoans(ctx context.Context, actor model.Actor) ([]model.BookLoan, error) {
	var st circulationState
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		st, err = loadCirculation(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	mine := make([]model.Booking, 0)
	for _, b := range st.bookings {
		if b.UserID == actor.UserID {
			mine = append(mine, b)
		}
	}
	loans := s.loans(mine, st.issuances)
	sortByReservedDesc(loans)
	return loans, nil
}

// ListLoans is the staff listing. Every whitespace separated term of q must occur in
// "id userId bookId libraryId status"; status matches the projected loan status.
func (s *Service) ListLoans(ctx context.Context, f model.LoanFilter) ([]model.BookLoan, error) {
	var st circulationState
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		st, err = loadCirculation(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	terms := strings.Fields(strings.ToLower(f.Q))
	status := strings.ToUpper(strings.TrimSpace(f.Status))

	out := make([]model.BookLoan, 0)
	for _, l := range s.loans(st.bookings, st.issuances) {
		if status != "" && string(l.Status) != status {
			continue
		}
		if !matchesTerms(loanHaystack(l), terms) {
			continue
		}
		out = append(out, l)
	}
	sortByReservedDesc(out)
	return out, nil
}

// loanHaystack also carries the issuance status, so OPEN finds issued loans.
func loanHaystack(l model.BookLoan) string {
	fields := []string{
		strconv.FormatInt(l.ID, 10),
		strconv.FormatInt(l.UserID, 10),
		strconv.FormatInt(l.BookID, 10),
		strconv.FormatInt(l.LibraryID, 10),
		string(l.Status),
	}
	if l.Status == model.LoanIssued {
		fields = append(fields, string(model.IssuanceOpen))
	}
	return strings.ToLower(strings.Join(fields, " "))
}

func matchesTerms(hay string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}

func (s *Service) GetLoan(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error) {
	var loan model.BookLoan
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		st, err := loadCirculation(ctx, q)
		if err != nil {
			return err
		}
		i := repository.Find(st.bookings, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		if !actor.Role.Staff() && st.bookings[i].UserID != actor.UserID {
			return errs.ErrForbidden
		}
		loan = s.loans(st.bookings[i:i+1], st.issuances)[0]
		return nil
	})
	return loan, err
}

// Reserve checks, in order: the book exists, the reader holds no active booking for
// it, and a copy is free in the requested library (any library when none is given).
func (s *Service) Reserve(ctx context.Context, actor model.Actor, req model.ReserveRequest) (model.BookLoan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loan model.BookLoan
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		st, err := loadCirculation(ctx, q)
		if err != nil {
			return err
		}
		if repository.Find(st.books, req.BookID) < 0 {
			return errs.ErrNotFound
		}
		for _, b := range st.bookings {
			if b.UserID == actor.UserID && b.BookID == req.BookID && b.Status.Active() {
				return errs.ErrAlreadyBooked
			}
		}
		libraryID, ok := pickLibrary(st, req)
		if !ok {
			return errs.ErrNotAvailable
		}
		now := s.now().UTC()
		booking := model.Booking{
			ID:            repository.NextID(st.bookings),
			UserID:        actor.UserID,
			BookID:        req.BookID,
			LibraryID:     libraryID,
			Status:        model.BookingPending,
			ReservedAt:    now,
			ReservedUntil: now.Add(holdPeriod),
		}
		if err := repository.Bookings.Save(ctx, q, append(st.bookings, booking)); err != nil {
			return err
		}
		loan = toLoan(booking, nil, now)
		return nil
	})
	if err != nil {
		return model.BookLoan{}, err
	}
	s.log.Debug("reserved", zap.Int64("loan", loan.ID), zap.Int64("book", loan.BookID))
	s.emit(ctx, EventBookingCreated, loan.ID, loan)
	return loan, nil
}

func pickLibrary(st circulationState, req model.ReserveRequest) (int64, bool) {
	free := availability(st.inventories, st.bookings, st.issuances)
	if req.LibraryID != 0 {
		return req.LibraryID, free[shelf{req.BookID, req.LibraryID}] > 0
	}
	var (
		best int64
		most int
	)
	for k, n := range free {
		if k.bookID != req.BookID || n <= 0 {
			continue
		}
		if n > most || (n == most && k.libraryID < best) {
			best, most = k.libraryID, n
		}
	}
	return best, most > 0
}

// mutateBooking loads the circulation state, applies fn to the booking with the given id
// and saves bookings and issuances.
func (s *Service) mutateBooking(ctx context.Context, id int64, fn func(st *circulationState, b *model.Booking) error) (model.BookLoan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loan model.BookLoan
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		st, err := loadCirculation(ctx, q)
		if err != nil {
			return err
		}
		i := repository.Find(st.bookings, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		if err := fn(&st, &st.bookings[i]); err != nil {
			return err
		}
		if err := repository.Bookings.Save(ctx, q, st.bookings); err != nil {
			return err
		}
		if err := repository.Issuances.Save(ctx, q, st.issuances); err != nil {
			return err
		}
		loan = s.loans(st.bookings[i:i+1], st.issuances)[0]
		return nil
	})
	return loan, err
}

// Cancel is allowed to the owner and to staff, from PENDING or RESERVED.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error) {
	loan, err := s.mutateBooking(ctx, id, func(_ *circulationState, b *model.Booking) error {
		if !actor.Role.Staff() && b.UserID != actor.UserID {
			return errs.ErrForbidden
		}
		if !b.Status.Active() {
			return errs.ErrBookingNotActive
		}
		b.Status = model.BookingCancelled
		return nil
	})
	if err != nil {
		return model.BookLoan{}, err
	}
	s.emit(ctx, EventBookingCancelled, loan.ID, loan)
	return loan, nil
}

// Approve confirms a PENDING booking: the copy is put aside for pickup.
func (s *Service) Approve(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error) {
	librarianID := s.librarianID(ctx, actor)
	loan, err := s.mutateBooking(ctx, id, func(_ *circulationState, b *model.Booking) error {
		if b.Status != model.BookingPending {
			return errs.ErrBookingNotActive
		}
		b.Status = model.BookingReserved
		b.LibrarianID = librarianID
		return nil
	})
	if err != nil {
		return model.BookLoan{}, err
	}
	s.emit(ctx, EventBookingApproved, loan.ID, loan)
	return loan, nil
}

func (s *Service) librarianID(ctx context.Context, actor model.Actor) *int64 {
	profile, err := s.Librarian(ctx, actor)
	if err != nil {
		return nil
	}
	return &profile.ID
}

func (s *Service) Issue(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error) {
	loan, err := s.mutateBooking(ctx, id, func(st *circulationState, b *model.Booking) error {
		if i := latestIssuance(st.issuances, b.ID); i >= 0 && st.issuances[i].Status.Active() {
			return errs.ErrAlreadyIssued
		}
		if b.Status == model.BookingIssued {
			return errs.ErrAlreadyIssued
		}
		if b.Status != model.BookingReserved {
			return errs.ErrBookingNotActive
		}
		now := s.now().UTC()
		st.issuances = append(st.issuances, model.Issuance{
			ID:        repository.NextID(st.issuances),
			BookingID: b.ID,
			IssuedAt:  now,
			DueAt:     now.Add(loanPeriod),
			Status:    model.IssuanceOpen,
		})
		b.Status = model.BookingIssued
		return nil
	})
	if err != nil {
		return model.BookLoan{}, err
	}
	s.log.Info("issued", zap.Int64("loan", loan.ID), zap.Int64("by", actor.UserID))
	s.emit(ctx, EventLoanIssued, loan.ID, loan)
	return loan, nil
}

func (s *Service) Return(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error) {
	loan, err := s.mutateBooking(ctx, id, func(st *circulationState, b *model.Booking) error {
		i := latestIssuance(st.issuances, b.ID)
		if i < 0 || !st.issuances[i].Status.Active() {
			return errs.ErrIssuanceNotOpen
		}
		now := s.now().UTC()
		st.issuances[i].Status = model.IssuanceReturned
		st.issuances[i].ReturnedAt = &now
		return nil
	})
	if err != nil {
		return model.BookLoan{}, err
	}
	s.log.Info("returned", zap.Int64("loan", loan.ID), zap.Int64("by", actor.UserID))
	s.emit(ctx, EventLoanReturned, loan.ID, loan)
	return loan, nil
}

// Renew extends an open or overdue issuance by a week, at most twice, and only for its reader.
func (s *Service) Renew(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error) {
	loan, err := s.mutateBooking(ctx, id, func(st *circulationState, b *model.Booking) error {
		if b.UserID != actor.UserID {
			return errs.ErrForbidden
		}
		i := latestIssuance(st.issuances, b.ID)
		if i < 0 || !st.issuances[i].Status.Active() {
			return errs.ErrIssuanceNotOpen
		}
		iss := &st.issuances[i]
		if iss.RenewCount >= renewLimit {
			return errs.ErrRenewLimit
		}
		iss.DueAt = iss.DueAt.Add(renewPeriod)
		iss.RenewCount++
		if iss.Status == model.IssuanceOverdue && !iss.DueAt.Before(s.now()) {
			iss.Status = model.IssuanceOpen
		}
		return nil
	})
	if err != nil {
		return model.BookLoan{}, err
	}
	s.emit(ctx, EventLoanRenewed, loan.ID, loan)
	return loan, nil
}
