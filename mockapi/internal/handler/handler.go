package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/pkg/envelope"
	mw "github.com/Astemirdum/library-portal/pkg/middleware"
	"github.com/Astemirdum/library-portal/pkg/validate"
)

type Handler struct {
	auth        AuthService
	catalog     CatalogService
	circulation CirculationService
	log         *zap.Logger
}

func New(auth AuthService, catalog CatalogService, circulation CirculationService, log *zap.Logger) *Handler {
	return &Handler{
		auth:        auth,
		catalog:     catalog,
		circulation: circulation,
		log:         log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.HTTPErrorHandler = h.errorHandler
	e.Validator = validate.NewCustomValidator()
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{StackSize: 4 << 10}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", mw.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	api := e.Group("",
		middleware.RequestLoggerWithConfig(mw.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		mw.NewRateLimiter(apiRPS),
	)

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/forgot-password", h.ForgotPassword)
	auth.POST("/reset-password", h.ResetPassword)

	private := api.Group("", h.authenticate)
	staff := requireRole(staffRoles...)

	private.GET("/books", h.ListBooks)
	private.GET("/books/:id", h.GetBook)
	private.GET("/authors", h.ListAuthors)
	private.GET("/libraries", h.ListLibraries)
	private.GET("/book-inventories", h.ListInventories)
	private.POST("/book-inventories", h.CreateInventory, staff)
	private.PATCH("/book-inventories/:id", h.PatchInventory, staff)
	private.GET("/librarians/me", h.Librarian, staff)

	private.GET("/loans/my", h.MyLoans)
	private.GET("/loans", h.ListLoans, staff)
	private.GET("/loans/:id", h.GetLoan)
	private.POST("/loans/reserve", h.Reserve)
	private.POST("/loans/:id/cancel", h.Cancel)
	private.POST("/loans/:id/approve", h.Approve, staff)
	private.POST("/loans/:id/issue", h.Issue, staff)
	private.POST("/loans/:id/return", h.Return, staff)
	private.POST("/loans/:id/renew", h.Renew)

	private.GET("/fines/my", h.MyFines)
	private.GET("/fines", h.ListFines, staff)
	private.GET("/fines/:id", h.GetFine)
	private.POST("/fines/:id/pay", h.PayFine)
	private.POST("/fines/:id/write-off", h.WriteOff, staff)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

var statusByErr = []struct {
	err    error
	status int
}{
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrUnauthorized, http.StatusUnauthorized},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized},
	{errs.ErrForbidden, http.StatusForbidden},
	{errs.ErrIdentifierAlreadyExists, http.StatusConflict},
	{errs.ErrAlreadyBooked, http.StatusConflict},
	{errs.ErrNotAvailable, http.StatusConflict},
	{errs.ErrBookingNotActive, http.StatusConflict},
	{errs.ErrAlreadyIssued, http.StatusConflict},
	{errs.ErrIssuanceNotOpen, http.StatusConflict},
	{errs.ErrRenewLimit, http.StatusConflict},
	{errs.ErrInvalidOrExpiredToken, http.StatusBadRequest},
	{errs.ErrInvalidArgument, http.StatusBadRequest},
}

// serviceError maps a sentinel to its status; the envelope carries the sentinel code.
func serviceError(err error) *echo.HTTPError {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, m.err.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func badRequest(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errs.ErrInvalidArgument.Error()).SetInternal(err)
}

// errorHandler renders every failure as an ERROR envelope: the HTTP error message is
// the code, the internal error (if any) becomes the human readable message.
func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	message := msg
	if he != nil && he.Internal != nil {
		message = he.Internal.Error()
	}
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err), zap.String("URI", c.Request().RequestURI))
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, envelope.Failure(message, msg))
	}
	if err != nil {
		h.log.Warn("write error response", zap.Error(err))
	}
}

func ok[T any](c echo.Context, data T) error {
	return c.JSON(http.StatusOK, envelope.Success(data))
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Errorf("invalid id %q", c.Param("id")))
	}
	return id, nil
}

const filterPrefix = "filter."

func paging(c echo.Context) (model.Paging, error) {
	p := model.Paging{
		SortBy:  c.QueryParam("sortBy"),
		SortDir: c.QueryParam("sortDir"),
		Filters: map[string]string{},
	}
	for key, dst := range map[string]*int{"page": &p.Page, "size": &p.Size} {
		raw := c.QueryParam(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return model.Paging{}, badRequest(fmt.Errorf("invalid %s %q", key, raw))
		}
		*dst = n
	}
	for key, values := range c.QueryParams() {
		if strings.HasPrefix(key, filterPrefix) && len(values) > 0 {
			p.Filters[strings.TrimPrefix(key, filterPrefix)] = values[0]
		}
	}
	return p, nil
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest(err)
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err)
	}
	return nil
}

func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.Register(c.Request().Context(), req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, envelope.Success(resp))
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.Login(c.Request().Context(), req)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, resp)
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req model.ForgotPasswordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.ForgotPassword(c.Request().Context(), req)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, resp)
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req model.ResetPasswordRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.Request().Context(), req); err != nil {
		return serviceError(err)
	}
	return ok[any](c, nil)
}

func (h *Handler) Librarian(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
	}
	profile, err := h.auth.Librarian(c.Request().Context(), actor)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, profile)
}
