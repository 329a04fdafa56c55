package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/pkg/envelope"
)

func (h *Handler) ListBooks(c echo.Context) error {
	p, err := paging(c)
	if err != nil {
		return err
	}
	books, err := h.catalog.ListBooks(c.Request().Context(), p)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	book, err := h.catalog.GetBook(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, book)
}

func (h *Handler) ListAuthors(c echo.Context) error {
	p, err := paging(c)
	if err != nil {
		return err
	}
	authors, err := h.catalog.ListAuthors(c.Request().Context(), p)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, authors)
}

func (h *Handler) ListLibraries(c echo.Context) error {
	p, err := paging(c)
	if err != nil {
		return err
	}
	libraries, err := h.catalog.ListLibraries(c.Request().Context(), p)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, libraries)
}

func (h *Handler) ListInventories(c echo.Context) error {
	p, err := paging(c)
	if err != nil {
		return err
	}
	items, err := h.catalog.ListInventories(c.Request().Context(), p)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, items)
}

func (h *Handler) CreateInventory(c echo.Context) error {
	var req model.CreateInventoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	inv, err := h.catalog.CreateInventory(c.Request().Context(), req)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, inv)
}

func (h *Handler) PatchInventory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.PatchInventoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	inv, err := h.catalog.PatchInventory(c.Request().Context(), id, req)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, inv)
}

func (h *Handler) MyLoans(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
	}
	loans, err := h.circulation.MyLoans(c.Request().Context(), actor)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, loans)
}

func (h *Handler) ListLoans(c echo.Context) error {
	loans, err := h.circulation.ListLoans(c.Request().Context(), model.LoanFilter{
		Q:      c.QueryParam("q"),
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return serviceError(err)
	}
	return ok(c, loans)
}

func (h *Handler) Reserve(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
	}
	var req model.ReserveRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	loan, err := h.circulation.Reserve(c.Request().Context(), actor, req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, envelope.Success(loan))
}

type loanAction func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error)

// onLoan runs an action addressed by /loans/:id for the authenticated actor.
func (h *Handler) onLoan(action loanAction) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := getActor(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		loan, err := action(c, actor, id)
		if err != nil {
			return serviceError(err)
		}
		return ok(c, loan)
	}
}

func (h *Handler) GetLoan(c echo.Context) error {
	return h.onLoan(func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error) {
		return h.circulation.GetLoan(c.Request().Context(), actor, id)
	})(c)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.onLoan(func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error) {
		return h.circulation.Cancel(c.Request().Context(), actor, id)
	})(c)
}

func (h *Handler) Approve(c echo.Context) error {
	return h.onLoan(func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error) {
		return h.circulation.Approve(c.Request().Context(), actor, id)
	})(c)
}

func (h *Handler) Issue(c echo.Context) error {
	return h.onLoan(func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error) {
		return h.circulation.Issue(c.Request().Context(), actor, id)
	})(c)
}

func (h *Handler) Return(c echo.Context) error {
	return h.onLoan(func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error) {
		return h.circulation.Return(c.Request().Context(), actor, id)
	})(c)
}

func (h *Handler) Renew(c echo.Context) error {
	return h.onLoan(func(c echo.Context, actor model.Actor, id int64) (model.BookLoan, error) {
		return h.circulation.Renew(c.Request().Context(), actor, id)
	})(c)
}

func (h *Handler) MyFines(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
	}
	fines, err := h.circulation.MyFines(c.Request().Context(), actor)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, fines)
}

func (h *Handler) ListFines(c echo.Context) error {
	fines, err := h.circulation.ListFines(c.Request().Context(), model.FineFilter{
		Q:     c.QueryParam("q"),
		State: c.QueryParam("state"),
	})
	if err != nil {
		return serviceError(err)
	}
	return ok(c, fines)
}

func (h *Handler) GetFine(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	fine, err := h.circulation.GetFine(c.Request().Context(), actor, id)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, fine)
}

func (h *Handler) PayFine(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUnauthorized.Error())
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	fine, err := h.circulation.PayFine(c.Request().Context(), actor, id)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, fine)
}

func (h *Handler) WriteOff(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	fine, err := h.circulation.WriteOff(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return ok(c, fine)
}
