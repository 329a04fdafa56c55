package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

type SweepResult struct {
	Overdue      int
	FinesCreated int
	Expired      int
}

// Sweep persists derived state: OPEN issuances past their deadline become OVERDUE and
// get one UNPAID fine each, and holds past their deadline are cancelled.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res    SweepResult
		events []pending
	)
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		st, err := loadCirculation(ctx, q)
		if err != nil {
			return err
		}
		fines, err := repository.Fines.Load(ctx, q)
		if err != nil {
			return err
		}
		fined := make(map[int64]bool, len(fines))
		for _, f := range fines {
			fined[f.IssuanceID] = true
		}
		bookings := make(map[int64]model.Booking, len(st.bookings))
		for _, b := range st.bookings {
			bookings[b.ID] = b
		}

		now := s.now().UTC()
		for i := range st.issuances {
			iss := &st.issuances[i]
			if iss.Status == model.IssuanceOpen && iss.DueAt.Before(now) {
				iss.Status = model.IssuanceOverdue
				res.Overdue++
			}
			if iss.Status != model.IssuanceOverdue || fined[iss.ID] {
				continue
			}
			fine := model.Fine{
				ID:          repository.NextID(fines),
				ReaderID:    bookings[iss.BookingID].UserID,
				IssuanceID:  iss.ID,
				Description: overdueFineText,
				DueDate:     now,
				Amount:      overdueFine,
				State:       model.FineUnpaid,
			}
			fines = append(fines, fine)
			fined[iss.ID] = true
			res.FinesCreated++
			events = append(events, pending{EventFineCreated, fine.ID, fine})
		}
		for i := range st.bookings {
			b := &st.bookings[i]
			if b.Status.Active() && !b.ReservedUntil.IsZero() && b.ReservedUntil.Before(now) {
				b.Status = model.BookingCancelled
				res.Expired++
				events = append(events, pending{EventBookingCancelled, b.ID, toLoan(*b, nil, now)})
			}
		}
		if res == (SweepResult{}) {
			return nil
		}
		if err := repository.Issuances.Save(ctx, q, st.issuances); err != nil {
			return err
		}
		if err := repository.Bookings.Save(ctx, q, st.bookings); err != nil {
			return err
		}
		return repository.Fines.Save(ctx, q, fines)
	})
	if err != nil {
		return SweepResult{}, err
	}
	if res != (SweepResult{}) {
		s.log.Info("sweep",
			zap.Int("overdue", res.Overdue),
			zap.Int("fines", res.FinesCreated),
			zap.Int("expired", res.Expired))
	}
	s.flush(ctx, events)
	return res, nil
}

func sortByDueDesc(fines []model.Fine) {
	sort.SliceStable(fines, func(i, j int) bool {
		return fines[i].DueDate.After(fines[j].DueDate)
	})
}

func (s *Service) loadFines(ctx context.Context) ([]model.Fine, error) {
	var fines []model.Fine
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		fines, err = repository.Fines.Load(ctx, q)
		return err
	})
	return fines, err
}

func (s *Service) MyFines(ctx context.Context, actor model.Actor) ([]model.Fine, error) {
	fines, err := s.loadFines(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]model.Fine, 0)
	for _, f := range fines {
		if f.ReaderID == actor.UserID {
			mine = append(mine, f)
		}
	}
	sortByDueDesc(mine)
	return mine, nil
}

// ListFines is the staff listing; q is matched against "id readerId issuanceId description".
func (s *Service) ListFines(ctx context.Context, f model.FineFilter) ([]model.Fine, error) {
	fines, err := s.loadFines(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Q))
	state := strings.ToUpper(strings.TrimSpace(f.State))
	out := make([]model.Fine, 0, len(fines))
	for _, fine := range fines {
		if state != "" && string(fine.State) != state {
			continue
		}
		if q != "" && !strings.Contains(fineHaystack(fine), q) {
			continue
		}
		out = append(out, fine)
	}
	sortByDueDesc(out)
	return out, nil
}

func fineHaystack(f model.Fine) string {
	return strings.ToLower(strconv.FormatInt(f.ID, 10) + " " +
		strconv.FormatInt(f.ReaderID, 10) + " " +
		strconv.FormatInt(f.IssuanceID, 10) + " " +
		f.Description)
}

func (s *Service) GetFine(ctx context.Context, actor model.Actor, id int64) (model.Fine, error) {
	fines, err := s.loadFines(ctx)
	if err != nil {
		return model.Fine{}, err
	}
	i := repository.Find(fines, id)
	if i < 0 {
		return model.Fine{}, errs.ErrNotFound
	}
	if !actor.Role.Staff() && fines[i].ReaderID != actor.UserID {
		return model.Fine{}, errs.ErrForbidden
	}
	return fines[i], nil
}

func (s *Service) mutateFine(ctx context.Context, id int64, fn func(f *model.Fine) (bool, error)) (model.Fine, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		fine    model.Fine
		changed bool
	)
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		fines, err := repository.Fines.Load(ctx, q)
		if err != nil {
			return err
		}
		i := repository.Find(fines, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		if changed, err = fn(&fines[i]); err != nil {
			return err
		}
		fine = fines[i]
		if !changed {
			return nil
		}
		return repository.Fines.Save(ctx, q, fines)
	})
	return fine, changed, err
}

// PayFine settles an UNPAID fine. Readers may only pay their own; paying a settled fine
// changes nothing.
func (s *Service) PayFine(ctx context.Context, actor model.Actor, id int64) (model.Fine, error) {
	fine, changed, err := s.mutateFine(ctx, id, func(f *model.Fine) (bool, error) {
		if !actor.Role.Staff() && f.ReaderID != actor.UserID {
			return false, errs.ErrForbidden
		}
		if f.State != model.FineUnpaid {
			return false, nil
		}
		now := s.now().UTC()
		f.State = model.FinePaid
		f.PaymentDate = &now
		f.WrittenOff = false
		return true, nil
	})
	if err != nil {
		return model.Fine{}, err
	}
	if changed {
		s.emit(ctx, EventFinePaid, fine.ID, fine)
	}
	return fine, nil
}

// WriteOff closes a fine without payment.
func (s *Service) WriteOff(ctx context.Context, id int64) (model.Fine, error) {
	fine, changed, err := s.mutateFine(ctx, id, func(f *model.Fine) (bool, error) {
		now := s.now().UTC()
		f.State = model.FinePaid
		f.PaymentDate = &now
		f.WrittenOff = true
		return true, nil
	})
	if err != nil {
		return model.Fine{}, err
	}
	if changed {
		s.emit(ctx, EventFinePaid, fine.ID, fine)
	}
	return fine, nil
}
