package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type tokenData struct {
	Token string `json:"token"`
}

func (c *Client) authenticate(ctx context.Context, path string, body credentials) (string, error) {
	var out tokenData
	err := c.do(ctx, call{method: http.MethodPost, path: path, body: body, anonymous: true}, &out)
	return out.Token, err
}

// Login returns the issued token, "" when the backend answered without one.
func (c *Client) Login(ctx context.Context, identifier, secret string) (string, error) {
	return c.authenticate(ctx, "/auth/login", credentials{Email: identifier, Password: secret})
}

// Register always asks for a reader account; staff accounts are not self-service.
func (c *Client) Register(ctx context.Context, identifier, secret string) (string, error) {
	return c.authenticate(ctx, "/auth/register", credentials{Email: identifier, Password: secret, Role: "USER"})
}

func (c *Client) ForgotPassword(ctx context.Context, identifier string) (string, error) {
	var out struct {
		ResetToken string `json:"resetToken"`
	}
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/forgot-password",
		body:      map[string]string{"email": identifier},
		anonymous: true,
	}, &out)
	return out.ResetToken, err
}

func (c *Client) ResetPassword(ctx context.Context, token, newSecret string) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/auth/reset-password",
		body:      map[string]string{"token": token, "newPassword": newSecret},
		anonymous: true,
	}, nil)
}

func (c *Client) Books(ctx context.Context, p ListParams) ([]Book, error) {
	return get[[]Book](ctx, c, "/books", p.Values())
}

func (c *Client) Book(ctx context.Context, id int64) (Book, error) {
	return get[Book](ctx, c, fmt.Sprintf("/books/%d", id), nil)
}

func (c *Client) Authors(ctx context.Context, p ListParams) ([]Author, error) {
	return get[[]Author](ctx, c, "/authors", p.Values())
}

func (c *Client) Libraries(ctx context.Context, p ListParams) ([]Library, error) {
	return get[[]Library](ctx, c, "/libraries", p.Values())
}

func (c *Client) Inventories(ctx context.Context, p ListParams) ([]Inventory, error) {
	return get[[]Inventory](ctx, c, "/book-inventories", p.Values())
}

func (c *Client) CreateInventory(ctx context.Context, req InventoryRequest) (Inventory, error) {
	return send[Inventory](ctx, c, http.MethodPost, "/book-inventories", req)
}

func (c *Client) PatchInventory(ctx context.Context, id int64, req InventoryRequest) (Inventory, error) {
	req.BookID, req.LibraryID = 0, 0
	return send[Inventory](ctx, c, http.MethodPatch, fmt.Sprintf("/book-inventories/%d", id), req)
}

func (c *Client) MyLibrarian(ctx context.Context) (Librarian, error) {
	return get[Librarian](ctx, c, "/librarians/me", nil)
}

func (c *Client) MyLoans(ctx context.Context) ([]Loan, error) {
	return get[[]Loan](ctx, c, "/loans/my", nil)
}

func (c *Client) Loans(ctx context.Context, q LoanQuery) ([]Loan, error) {
	v := url.Values{}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return get[[]Loan](ctx, c, "/loans", v)
}

func (c *Client) Loan(ctx context.Context, id int64) (Loan, error) {
	return get[Loan](ctx, c, fmt.Sprintf("/loans/%d", id), nil)
}

func (c *Client) Reserve(ctx context.Context, bookID, libraryID int64) (Loan, error) {
	return send[Loan](ctx, c, http.MethodPost, "/loans/reserve", map[string]int64{
		"bookId":    bookID,
		"libraryId": libraryID,
	})
}

func (c *Client) loanAction(ctx context.Context, id int64, action string) (Loan, error) {
	return send[Loan](ctx, c, http.MethodPost, fmt.Sprintf("/loans/%d/%s", id, action), nil)
}

func (c *Client) CancelLoan(ctx context.Context, id int64) (Loan, error) {
	return c.loanAction(ctx, id, "cancel")
}

func (c *Client) ApproveLoan(ctx context.Context, id int64) (Loan, error) {
	return c.loanAction(ctx, id, "approve")
}

func (c *Client) IssueLoan(ctx context.Context, id int64) (Loan, error) {
	return c.loanAction(ctx, id, "issue")
}

func (c *Client) ReturnLoan(ctx context.Context, id int64) (Loan, error) {
	return c.loanAction(ctx, id, "return")
}

func (c *Client) RenewLoan(ctx context.Context, id int64) (Loan, error) {
	return c.loanAction(ctx, id, "renew")
}

func (c *Client) MyFines(ctx context.Context) ([]Fine, error) {
	return get[[]Fine](ctx, c, "/fines/my", nil)
}

func (c *Client) Fines(ctx context.Context, q FineQuery) ([]Fine, error) {
	v := url.Values{}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.State != "" {
		v.Set("state", q.State)
	}
	return get[[]Fine](ctx, c, "/fines", v)
}

func (c *Client) Fine(ctx context.Context, id int64) (Fine, error) {
	return get[Fine](ctx, c, fmt.Sprintf("/fines/%d", id), nil)
}

func (c *Client) PayFine(ctx context.Context, id int64) (Fine, error) {
	return send[Fine](ctx, c, http.MethodPost, fmt.Sprintf("/fines/%d/pay", id), nil)
}

func (c *Client) WriteOffFine(ctx context.Context, id int64) (Fine, error) {
	return send[Fine](ctx, c, http.MethodPost, fmt.Sprintf("/fines/%d/write-off", id), nil)
}
