package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi"
	"github.com/Astemirdum/library-portal/mockapi/mockapitest"
	"github.com/Astemirdum/library-portal/pkg/envelope"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/api"
	"github.com/Astemirdum/library-portal/portal/internal/catalog"
	"github.com/Astemirdum/library-portal/portal/internal/circulation"
	"github.com/Astemirdum/library-portal/portal/internal/session"
)

type console struct {
	sessions *session.Manager
	cache    *catalog.Cache
	circ     *circulation.Service
}

func newConsole(t *testing.T) *console {
	t.Helper()
	srv := mockapitest.NewServer(t)
	log := zap.NewNop()

	store, err := kvstore.Open(context.Background(), kvstore.Config{
		Driver: kvstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "portal.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var sessions *session.Manager
	tokens := api.TokenFunc(func(ctx context.Context) string { return sessions.Token(ctx) })
	cb := api.NewBreaker(config.Breaker{RecordLength: 20, Timeout: time.Second, Percentile: 0.9, RecoveryRequests: 1})
	client := api.New(config.API{URL: srv.URL, Timeout: 5 * time.Second}, cb, tokens, log)
	sessions = session.NewManager(store, client, log)
	cache := catalog.NewCache(client, log)
	return &console{
		sessions: sessions,
		cache:    cache,
		circ:     circulation.NewService(client, cache, log),
	}
}

func (c *console) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(c.sessions, c.cache, c.circ, zap.NewNop(), WithIO(strings.NewReader(input), &out))
	err := app.Execute(context.Background(), args)
	return out.String(), err
}

func TestConsole_Access(t *testing.T) {
	t.Parallel()
	c := newConsole(t)

	out, err := c.run(t, "", "whoami")
	require.NoError(t, err)
	require.Equal(t, "Гость\n", out)

	out, err = c.run(t, "", "reservations")
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, session.LoginPath, redirect.Target)
	require.Contains(t, out, msgSignIn)

	out, err = c.run(t, mockapi.DemoReaderPassword+"\n", "login", mockapi.DemoReaderEmail)
	require.NoError(t, err)
	require.Contains(t, out, "Вход выполнен: reader@lib.com (READER). Ваш раздел: /reader")

	out, err = c.run(t, "", "login")
	require.ErrorAs(t, err, &redirect)
	require.True(t, redirect.SignedIn)
	require.Contains(t, out, msgSignedIn+session.ReaderPath)

	out, err = c.run(t, "", "staff", "dashboard")
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, session.ReaderPath, redirect.Target)
	require.Contains(t, out, msgArea+session.ReaderPath)

	_, err = c.run(t, "", "logout")
	require.NoError(t, err)
	out, err = c.run(t, "", "whoami")
	require.NoError(t, err)
	require.Equal(t, "Гость\n", out)
}

func TestConsole_BadPassword(t *testing.T) {
	t.Parallel()
	c := newConsole(t)

	out, err := c.run(t, "wrong\n", "login", mockapi.DemoReaderEmail)
	require.Equal(t, "INVALID_CREDENTIALS", envelope.Code(err))
	require.Contains(t, out, "Неверный email или пароль")

	out, err = c.run(t, "Secret123\nSecret124\n", "register", "new@lib.com")
	require.ErrorIs(t, err, errMismatch)
	require.Contains(t, out, "Пароли не совпадают")
}

func TestConsole_Circulation(t *testing.T) {
	t.Parallel()
	c := newConsole(t)

	_, err := c.run(t, mockapi.DemoReaderPassword+"\n", "login", mockapi.DemoReaderEmail)
	require.NoError(t, err)

	out, err := c.run(t, "", "catalog", "--genre", "Fiction")
	require.NoError(t, err)
	require.Contains(t, out, "Мастер и Маргарита")
	require.NotContains(t, out, "Clean Code")

	out, err = c.run(t, "", "book", "1")
	require.NoError(t, err)
	require.Contains(t, out, "\n1*  ")
	require.Contains(t, out, "\n2  ")

	out, err = c.run(t, "", "reserve", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Бронь 1 создана: Design Patterns, статус PENDING")
	require.Contains(t, out, "Библиотека 1: ")
	require.Contains(t, out, "Москва")

	out, err = c.run(t, "", "reserve", "2")
	require.Equal(t, "ALREADY_BOOKED", envelope.Code(err))
	require.Contains(t, out, "У вас уже есть активная бронь на этот материал.")

	out, err = c.run(t, "", "reservations")
	require.NoError(t, err)
	require.Contains(t, out, "Design Patterns")
	require.Contains(t, out, "PENDING")

	_, err = c.run(t, "", "logout")
	require.NoError(t, err)
	_, err = c.run(t, mockapi.DemoLibrarianPassword+"\n", "login", mockapi.DemoLibrarianEmail)
	require.NoError(t, err)

	out, err = c.run(t, "", "staff", "bookings", "-q", "ожидает")
	require.NoError(t, err)
	require.Contains(t, out, "Design Patterns")

	out, err = c.run(t, "", "staff", "approve", "1")
	require.NoError(t, err)
	require.Equal(t, "Бронь 1: RESERVED.\n", out)

	out, err = c.run(t, "", "staff", "issue", "1")
	require.NoError(t, err)
	require.Equal(t, "Бронь 1: ISSUED.\n", out)

	out, err = c.run(t, "", "staff", "issue", "1")
	require.Error(t, err)
	require.Contains(t, out, failIssue+envelope.Code(err))

	out, err = c.run(t, "", "staff", "dashboard")
	require.NoError(t, err)
	require.Contains(t, out, "Активные брони: 0")
	require.Contains(t, out, "Неоплаченные штрафы: 0 на сумму 0.00")

	out, err = c.run(t, "", "staff", "inventory", "list", "--book", "2")
	require.NoError(t, err)
	require.Regexp(t, `(?m)^3\s+2\s+1\s+4\s+3\s*$`, out)

	_, err = c.run(t, "", "staff", "return", "1")
	require.NoError(t, err)
	out, err = c.run(t, "", "staff", "issuances", "--status", "returned")
	require.NoError(t, err)
	require.Contains(t, out, "RETURNED")
}

func TestMessage(t *testing.T) {
	t.Parallel()
	apiErr := func(code string) error { return &envelope.Error{Kind: envelope.KindAPI, HTTPStatus: 409, Message: code} }
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"known code", fail(failReserve, apiErr("NOT_AVAILABLE")), "К сожалению, сейчас нет доступных копий."},
		{"fallback", fail(failReserve, apiErr("NOT_FOUND")), failReserve},
		{"fallback with detail", fail(failApprove, apiErr("BOOKING_NOT_ACTIVE")), failApprove + "BOOKING_NOT_ACTIVE"},
		{"no library", fail(failApprove, circulation.ErrNoLibrary), msgNoLibrary},
		{"foreign library", errors.Wrap(circulation.ErrForeignLibrary, "approve"), msgForeign},
		{"busy", circulation.ErrBusy, msgBusy},
		{"transport", fail(failRenew, envelope.Transport(errors.New("refused"))), msgUnavailable},
		{"redirect", &RedirectError{Target: session.LibrarianPath}, msgArea + session.LibrarianPath},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Message(tt.err, ""))
		})
	}
}
