package circulation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-portal/portal/internal/api"
)

const dashboardRecent = 5

type Dashboard struct {
	ActiveBookings   int        `json:"activeBookings"`
	OverdueIssuances int        `json:"overdueIssuances"`
	UnpaidFines      int        `json:"unpaidFines"`
	UnpaidTotal      float64    `json:"unpaidTotal"`
	RecentBookings   []Booking  `json:"recentBookings"`
	Overdue          []Issuance `json:"overdue"`
	Unpaid           []api.Fine `json:"unpaid"`
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Dashboard summarizes active bookings, overdue issuances and unpaid fines with the
// five most relevant rows of each.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		loans []api.Loan
		fines []api.Fine
		l     lookup
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		loans, err = s.api.Loans(gctx, api.LoanQuery{})
		return err
	})
	g.Go(func() (err error) {
		fines, err = s.api.Fines(gctx, api.FineQuery{State: string(api.FineUnpaid)})
		return err
	})
	g.Go(func() (err error) {
		l, err = s.lookup(gctx, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	var d Dashboard
	active := make([]Booking, 0)
	for _, b := range l.bookings(loans) {
		if activeBooking(b.Status) {
			active = append(active, b)
		}
	}
	sortBookingsByDate(active)
	d.ActiveBookings = len(active)
	d.RecentBookings = head(active, dashboardRecent)

	overdue := make([]Issuance, 0)
	for _, iss := range l.issuances(loans) {
		if iss.Status == IssuanceOverdue {
			overdue = append(overdue, iss)
		}
	}
	sortIssuancesByDeadline(overdue)
	d.OverdueIssuances = len(overdue)
	d.Overdue = head(overdue, dashboardRecent)

	unpaid := make([]api.Fine, 0, len(fines))
	for _, f := range fines {
		if f.State == api.FineUnpaid {
			unpaid = append(unpaid, f)
			d.UnpaidTotal += f.Amount
		}
	}
	sortFinesByDue(unpaid)
	d.UnpaidFines = len(unpaid)
	d.Unpaid = head(unpaid, dashboardRecent)
	return d, nil
}
