package circulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi"
	"github.com/Astemirdum/library-portal/mockapi/mockapitest"
	"github.com/Astemirdum/library-portal/pkg/envelope"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/catalog"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// account is a logged-in console: its own client, cache and services.
type account struct {
	email, password string
	token           string
	client          *api.Client
	cache           *catalog.Cache
	svc             *Service
}

func (a *account) login(t *testing.T) {
	t.Helper()
	token, err := a.client.Login(context.Background(), a.email, a.password)
	require.NoError(t, err)
	a.token = token
}

type env struct {
	srv    *mockapitest.Server
	clk    *clock
	reader *account
	staff  *account
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	srv := mockapitest.NewServer(t, mockapi.WithClock(clk.now))
	e := &env{srv: srv, clk: clk}
	e.reader = e.account(t, mockapi.DemoReaderEmail, mockapi.DemoReaderPassword)
	e.staff = e.account(t, mockapi.DemoLibrarianEmail, mockapi.DemoLibrarianPassword)
	return e
}

func (e *env) account(t *testing.T, email, password string) *account {
	t.Helper()
	a := &account{email: email, password: password}
	cb := api.NewBreaker(config.Breaker{RecordLength: 20, Timeout: time.Second, Percentile: 0.9, RecoveryRequests: 1})
	tokens := api.TokenFunc(func(context.Context) string { return a.token })
	a.client = api.New(config.API{URL: e.srv.URL, Timeout: 5 * time.Second}, cb, tokens, zap.NewNop())
	a.cache = catalog.NewCache(a.client, zap.NewNop())
	a.svc = NewService(a.client, a.cache, zap.NewNop(), WithClock(e.clk.now))
	a.login(t)
	return a
}

func TestReader_Bookings(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	svc := e.reader.svc

	b, err := svc.Reserve(ctx, 2, 0)
	require.NoError(t, err)
	require.Equal(t, api.LoanPending, b.Status)
	require.Equal(t, "Design Patterns", b.Title)
	require.Equal(t, int64(1), b.LibraryID)
	require.Equal(t, "2024-03-01", b.BookingDate)

	_, err = svc.Reserve(ctx, 2, 0)
	require.Equal(t, "ALREADY_BOOKED", envelope.Code(err))

	e.clk.advance(time.Hour / 2)
	second, err := svc.Reserve(ctx, 4, 1)
	require.NoError(t, err)

	mine, err := svc.MyBookings(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.ID, mine[0].ID)
	require.Equal(t, "Мастер и Маргарита", mine[0].Title)
	require.Equal(t, "Россия, Москва, ул. Тверская, 1", mine[0].Address)

	require.NoError(t, svc.CancelBooking(ctx, b.ID))
	mine, err = svc.MyBookings(ctx)
	require.NoError(t, err)
	require.Equal(t, api.LoanCancelled, mine[1].Status)

	issued, err := svc.MyIssuances(ctx)
	require.NoError(t, err)
	require.Empty(t, issued)
}

func TestReserve_RefreshesAvailability(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	before, _, err := e.reader.cache.Material(ctx, 3)
	require.NoError(t, err)
	_, err = e.reader.svc.Reserve(ctx, 3, 1)
	require.NoError(t, err)
	after, _, err := e.reader.cache.Material(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, before.AvailableCopies-1, after.AvailableCopies)
}

func TestReserve_AnyLibrary(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	// Book 3 leaves library 1 and is stocked only in library 2.
	_, err := e.staff.cache.PatchInventory(ctx, 4, api.InventoryRequest{TotalCopies: 0})
	require.NoError(t, err)
	_, err = e.staff.cache.CreateInventory(ctx, api.InventoryRequest{BookID: 3, LibraryID: 2, TotalCopies: 1})
	require.NoError(t, err)

	_, err = e.reader.svc.Reserve(ctx, 3, 1)
	require.Equal(t, "NOT_AVAILABLE", envelope.Code(err))

	b, err := e.reader.svc.Reserve(ctx, 3, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), b.LibraryID)
	require.NotEmpty(t, b.Address)
}

func TestStaff_Lifecycle(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	staff := e.staff.svc

	b, err := e.reader.svc.Reserve(ctx, 1, 1)
	require.NoError(t, err)

	rows, err := staff.Bookings(ctx, "ожидает", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, b.ID, rows[0].ID)
	require.Equal(t, "Clean Code", rows[0].Title)

	rows, err = staff.Bookings(ctx, "", "expired")
	require.NoError(t, err)
	require.Empty(t, rows)

	approved, err := staff.Approve(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, api.LoanReserved, approved.Status)

	issued, err := staff.Issue(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, api.LoanIssued, issued.Status)

	open, err := staff.Issuances(ctx, "", IssuanceOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, IssuanceOpen, open[0].Status)
	require.Equal(t, "2024-03-15", open[0].ReturnDeadline)

	open, err = staff.Issuances(ctx, "открыта", "")
	require.NoError(t, err)
	require.Len(t, open, 1)

	renewed, err := e.reader.svc.Renew(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, renewed.RenewCount)
	require.Equal(t, "2024-03-22", renewed.ReturnDeadline)

	e.clk.advance(30 * 24 * time.Hour)
	_, err = e.srv.Backend.Sweep(ctx)
	require.NoError(t, err)
	e.reader.login(t)
	e.staff.login(t)

	d, err := staff.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, d.ActiveBookings)
	require.Equal(t, 1, d.OverdueIssuances)
	require.Equal(t, 1, d.UnpaidFines)
	require.InDelta(t, 100, d.UnpaidTotal, 0.001)
	require.Len(t, d.Overdue, 1)
	require.Equal(t, "Clean Code", d.Overdue[0].Title)

	overdue, err := staff.Issuances(ctx, "просрочено", "")
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, IssuanceOverdue, overdue[0].Status)

	fines, err := e.reader.svc.MyFines(ctx)
	require.NoError(t, err)
	require.Len(t, fines, 1)
	paid, err := e.reader.svc.PayFine(ctx, fines[0].ID)
	require.NoError(t, err)
	require.Equal(t, api.FinePaid, paid.State)

	require.NoError(t, staff.Return(ctx, b.ID))
	returned, err := staff.Issuances(ctx, "", IssuanceReturned)
	require.NoError(t, err)
	require.Len(t, returned, 1)
	require.Equal(t, "2024-03-31", returned[0].ReturnedAt)

	d, err = staff.Dashboard(ctx)
	require.NoError(t, err)
	require.Zero(t, d.OverdueIssuances)
	require.Zero(t, d.UnpaidFines)
	require.Empty(t, d.Unpaid)
}

func TestStaff_ForeignLibrary(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.staff.cache.CreateInventory(ctx, api.InventoryRequest{BookID: 3, LibraryID: 2, TotalCopies: 1})
	require.NoError(t, err)
	b, err := e.reader.svc.Reserve(ctx, 3, 2)
	require.NoError(t, err)

	_, err = e.staff.svc.Approve(ctx, b.ID)
	require.ErrorIs(t, err, ErrForeignLibrary)
	require.False(t, e.staff.svc.Guard().Busy(key("loan", b.ID)))

	rows, err := e.staff.svc.Bookings(ctx, "", "pending")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Санкт-Петербург, Невский пр., 28", rows[0].Address)
}

type fakeBackend struct {
	Backend
	librarian api.Librarian
	loan      api.Loan
	entered   chan struct{}
	release   chan struct{}
	approved  int
}

func (f *fakeBackend) MyLibrarian(context.Context) (api.Librarian, error) { return f.librarian, nil }
func (f *fakeBackend) Loan(context.Context, int64) (api.Loan, error)     { return f.loan, nil }

func (f *fakeBackend) ApproveLoan(context.Context, int64) (api.Loan, error) {
	f.approved++
	return f.loan, nil
}

func (f *fakeBackend) ReturnLoan(context.Context, int64) (api.Loan, error) { return f.loan, nil }

func (f *fakeBackend) PayFine(_ context.Context, id int64) (api.Fine, error) {
	close(f.entered)
	<-f.release
	return api.Fine{ID: id, State: api.FinePaid}, nil
}

type fakeCatalog struct {
	Catalog
	invalidated int
}

func (c *fakeCatalog) AllMaterials(context.Context) ([]catalog.Material, error) { return nil, nil }
func (c *fakeCatalog) InvalidateInventories()                                   { c.invalidated++ }

func TestStaff_NoLibrary(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{loan: api.Loan{ID: 5, LibraryID: 1, Status: api.LoanPending}}
	cat := &fakeCatalog{}
	svc := NewService(backend, cat, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Approve(ctx, 5)
	require.ErrorIs(t, err, ErrNoLibrary)
	require.Zero(t, backend.approved)
	require.Zero(t, cat.invalidated)

	// returns are not tied to a library
	require.NoError(t, svc.Return(ctx, 5))
	require.Equal(t, 1, cat.invalidated)

	lib := int64(1)
	backend.librarian.LibraryID = &lib
	b, err := svc.Approve(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, UnknownTitle, b.Title)
	require.Equal(t, 1, backend.approved)
}

func TestService_BusyRow(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(backend, &fakeCatalog{}, zap.NewNop())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.PayFine(ctx, 9)
		done <- err
	}()
	<-backend.entered

	_, err := svc.WriteOff(ctx, 9)
	require.ErrorIs(t, err, ErrBusy)

	close(backend.release)
	require.NoError(t, <-done)
	require.False(t, svc.Guard().Busy(key("fine", 9)))
}
