package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/handler"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"

	service_mocks "github.com/Astemirdum/library-portal/mockapi/internal/handler/mocks"
)

type mocks struct {
	auth        *service_mocks.MockAuthService
	catalog     *service_mocks.MockCatalogService
	circulation *service_mocks.MockCirculationService
}

const (
	readerToken    = "reader-token"
	librarianToken = "librarian-token"
)

var (
	reader    = model.Actor{UserID: 2, Email: "reader@lib.com", Role: model.RoleUser}
	librarian = model.Actor{UserID: 1, Email: "admin@lib.com", Role: model.RoleLibrarian}
)

func newRouter(t *testing.T) (*echo.Echo, mocks) {
	t.Helper()
	c := gomock.NewController(t)
	m := mocks{
		auth:        service_mocks.NewMockAuthService(c),
		catalog:     service_mocks.NewMockCatalogService(c),
		circulation: service_mocks.NewMockCirculationService(c),
	}
	h := handler.New(m.auth, m.catalog, m.circulation, zap.NewNop())
	return h.NewRouter(), m
}

func expectToken(m mocks, token string) {
	switch token {
	case readerToken:
		m.auth.EXPECT().ParseToken(token).Return(reader, nil)
	case librarianToken:
		m.auth.EXPECT().ParseToken(token).Return(librarian, nil)
	case "":
	default:
		m.auth.EXPECT().ParseToken(token).Return(model.Actor{}, errors.New("token is expired"))
	}
}

func serve(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	return w
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(m mocks)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"email":"reader@lib.com","password":"Reader1234"}`,
			mockBehavior: func(m mocks) {
				m.auth.EXPECT().
					Login(gomock.Any(), model.LoginRequest{Email: "reader@lib.com", Password: "Reader1234"}).
					Return(model.AuthResponse{Token: "jwt"}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"status":"SUCCESS","data":{"token":"jwt"}}`,
			},
		},
		{
			name: "err. invalid credentials",
			body: `{"email":"reader@lib.com","password":"wrong"}`,
			mockBehavior: func(m mocks) {
				m.auth.EXPECT().
					Login(gomock.Any(), gomock.Any()).
					Return(model.AuthResponse{}, errors.Wrap(errs.ErrInvalidCredentials, "login"))
			},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"status":"ERROR","message":"INVALID_CREDENTIALS","errors":["INVALID_CREDENTIALS"]}`,
			},
		},
		{
			name: "err. internal",
			body: `{"email":"reader@lib.com","password":"Reader1234"}`,
			mockBehavior: func(m mocks) {
				m.auth.EXPECT().
					Login(gomock.Any(), gomock.Any()).
					Return(model.AuthResponse{}, errors.New("db internal"))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"status":"ERROR","message":"db internal","errors":["db internal"]}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			tt.mockBehavior(m)

			w := serve(e, http.MethodPost, "/auth/login", "", tt.body)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Validation(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		name   string
		method string
		target string
		token  string
		body   string
	}{
		{name: "login without email", method: http.MethodPost, target: "/auth/login", body: `{"password":"x"}`},
		{name: "weak password", method: http.MethodPost, target: "/auth/register", body: `{"email":"a@b.c","password":"short"}`},
		{name: "broken json", method: http.MethodPost, target: "/auth/register", body: `{"email":`},
		{name: "reserve without book", method: http.MethodPost, target: "/loans/reserve", token: readerToken, body: `{"libraryId":1}`},
		{name: "bad id", method: http.MethodGet, target: "/loans/abc", token: readerToken},
		{name: "bad page", method: http.MethodGet, target: "/books?page=x", token: readerToken},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			expectToken(m, tt.token)

			w := serve(e, tt.method, tt.target, tt.token, tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Contains(t, w.Body.String(), `"status":"ERROR"`)
			require.Contains(t, w.Body.String(), `"errors":["VALIDATION_FAILED"]`)
		})
	}
}

func TestHandler_Access(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		name         string
		method       string
		target       string
		token        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "no token",
			method:       http.MethodGet,
			target:       "/books",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"status":"ERROR","message":"UNAUTHORIZED","errors":["UNAUTHORIZED"]}`,
		},
		{
			name:         "expired token",
			method:       http.MethodGet,
			target:       "/loans/my",
			token:        "stale",
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"status":"ERROR","message":"token is expired","errors":["UNAUTHORIZED"]}`,
		},
		{
			name:         "reader on staff list",
			method:       http.MethodGet,
			target:       "/loans",
			token:        readerToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"status":"ERROR","message":"FORBIDDEN","errors":["FORBIDDEN"]}`,
		},
		{
			name:         "reader issues",
			method:       http.MethodPost,
			target:       "/loans/1/issue",
			token:        readerToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"status":"ERROR","message":"FORBIDDEN","errors":["FORBIDDEN"]}`,
		},
		{
			name:         "reader writes off",
			method:       http.MethodPost,
			target:       "/fines/1/write-off",
			token:        readerToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"status":"ERROR","message":"FORBIDDEN","errors":["FORBIDDEN"]}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			expectToken(m, tt.token)

			w := serve(e, tt.method, tt.target, tt.token, "")

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Reserve(t *testing.T) {
	t.Parallel()
	reservedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reservedUntil := reservedAt.Add(72 * time.Hour)

	type mockBehavior func(m mocks)
	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "ok",
			body: `{"bookId":1,"libraryId":1}`,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().
					Reserve(gomock.Any(), reader, model.ReserveRequest{BookID: 1, LibraryID: 1}).
					Return(model.BookLoan{
						ID:            7,
						UserID:        2,
						BookID:        1,
						LibraryID:     1,
						Status:        model.LoanPending,
						ReservedAt:    &reservedAt,
						ReservedUntil: &reservedUntil,
					}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"status":"SUCCESS","data":{"id":7,"userId":2,"bookId":1,"libraryId":1,"status":"PENDING","renewCount":0,"reservedAt":"2024-03-01T10:00:00Z","reservedUntil":"2024-03-04T10:00:00Z","issuedAt":null,"dueAt":null,"returnedAt":null}}`,
		},
		{
			name: "err. already booked",
			body: `{"bookId":1}`,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().
					Reserve(gomock.Any(), reader, model.ReserveRequest{BookID: 1}).
					Return(model.BookLoan{}, errs.ErrAlreadyBooked)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"status":"ERROR","message":"ALREADY_BOOKED","errors":["ALREADY_BOOKED"]}`,
		},
		{
			name: "err. not available",
			body: `{"bookId":2}`,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().
					Reserve(gomock.Any(), reader, model.ReserveRequest{BookID: 2}).
					Return(model.BookLoan{}, errors.Wrap(errs.ErrNotAvailable, "book 2"))
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"status":"ERROR","message":"NOT_AVAILABLE","errors":["NOT_AVAILABLE"]}`,
		},
		{
			name: "err. unknown book",
			body: `{"bookId":99}`,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().
					Reserve(gomock.Any(), reader, model.ReserveRequest{BookID: 99}).
					Return(model.BookLoan{}, errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"status":"ERROR","message":"NOT_FOUND","errors":["NOT_FOUND"]}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			expectToken(m, readerToken)
			tt.mockBehavior(m)

			w := serve(e, http.MethodPost, "/loans/reserve", readerToken, tt.body)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_LoanActions(t *testing.T) {
	t.Parallel()
	type mockBehavior func(m mocks)
	var tests = []struct {
		name         string
		target       string
		token        string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:   "approve",
			target: "/loans/7/approve",
			token:  librarianToken,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().Approve(gomock.Any(), librarian, int64(7)).
					Return(model.BookLoan{ID: 7, Status: model.LoanReserved}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"SUCCESS","data":{"id":7,"userId":0,"bookId":0,"libraryId":0,"status":"RESERVED","renewCount":0,"reservedAt":null,"reservedUntil":null,"issuedAt":null,"dueAt":null,"returnedAt":null}}`,
		},
		{
			name:   "issue twice",
			target: "/loans/7/issue",
			token:  librarianToken,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().Issue(gomock.Any(), librarian, int64(7)).
					Return(model.BookLoan{}, errs.ErrAlreadyIssued)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"status":"ERROR","message":"ALREADY_ISSUED","errors":["ALREADY_ISSUED"]}`,
		},
		{
			name:   "renew over limit",
			target: "/loans/7/renew",
			token:  readerToken,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().Renew(gomock.Any(), reader, int64(7)).
					Return(model.BookLoan{}, errs.ErrRenewLimit)
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"status":"ERROR","message":"RENEW_LIMIT","errors":["RENEW_LIMIT"]}`,
		},
		{
			name:   "cancel foreign",
			target: "/loans/8/cancel",
			token:  readerToken,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().Cancel(gomock.Any(), reader, int64(8)).
					Return(model.BookLoan{}, errs.ErrForbidden)
			},
			expectedCode: http.StatusForbidden,
			expectedBody: `{"status":"ERROR","message":"FORBIDDEN","errors":["FORBIDDEN"]}`,
		},
		{
			name:   "pay fine",
			target: "/fines/3/pay",
			token:  readerToken,
			mockBehavior: func(m mocks) {
				m.circulation.EXPECT().PayFine(gomock.Any(), reader, int64(3)).
					Return(model.Fine{ID: 3, ReaderID: 2, IssuanceID: 1, Description: "Просрочка возврата материала",
						DueDate: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), Amount: 100, State: model.FinePaid}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"SUCCESS","data":{"id":3,"readerId":2,"issuanceId":1,"description":"Просрочка возврата материала","dueDate":"2024-03-15T10:00:00Z","amount":100,"state":"PAID","writtenOff":false}}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, m := newRouter(t)
			expectToken(m, tt.token)
			tt.mockBehavior(m)

			w := serve(e, http.MethodPost, tt.target, tt.token, "")

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	e, m := newRouter(t)
	expectToken(m, readerToken)
	m.catalog.EXPECT().
		ListBooks(gomock.Any(), model.Paging{
			Page:    2,
			Size:    5,
			SortBy:  "title",
			SortDir: "desc",
			Filters: map[string]string{"genre": "Роман"},
		}).
		Return([]model.Book{{ID: 4, Title: "Мастер и Маргарита", AuthorIDs: []int64{8}, LibraryIDs: []int64{1, 2}, Genre: "Роман"}}, nil)

	w := serve(e, http.MethodGet, "/books?page=2&size=5&sortBy=title&sortDir=desc&filter.genre=%D0%A0%D0%BE%D0%BC%D0%B0%D0%BD", readerToken, "")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`{"status":"SUCCESS","data":[{"id":4,"title":"Мастер и Маргарита","authorIds":[8],"libraryIds":[1,2],"publishingHouse":"","publicationYear":"","genre":"Роман","language":"","isbn":""}]}`,
		strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	e, _ := newRouter(t)
	w := serve(e, http.MethodGet, "/manage/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}
