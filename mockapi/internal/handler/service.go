package handler

import (
	"context"

	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/mockapi/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error)
	ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) (model.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error
	ParseToken(token string) (model.Actor, error)
	Librarian(ctx context.Context, actor model.Actor) (model.LibrarianProfile, error)
}

type CatalogService interface {
	ListBooks(ctx context.Context, p model.Paging) ([]model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListAuthors(ctx context.Context, p model.Paging) ([]model.Author, error)
	ListLibraries(ctx context.Context, p model.Paging) ([]model.Library, error)
	ListInventories(ctx context.Context, p model.Paging) ([]model.BookInventory, error)
	CreateInventory(ctx context.Context, req model.CreateInventoryRequest) (model.BookInventory, error)
	PatchInventory(ctx context.Context, id int64, req model.PatchInventoryRequest) (model.BookInventory, error)
}

type CirculationService interface {
	MyLoans(ctx context.Context, actor model.Actor) ([]model.BookLoan, error)
	ListLoans(ctx context.Context, f model.LoanFilter) ([]model.BookLoan, error)
	GetLoan(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error)
	Reserve(ctx context.Context, actor model.Actor, req model.ReserveRequest) (model.BookLoan, error)
	Cancel(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error)
	Approve(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error)
	Issue(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error)
	Return(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error)
	Renew(ctx context.Context, actor model.Actor, id int64) (model.BookLoan, error)
	MyFines(ctx context.Context, actor model.Actor) ([]model.Fine, error)
	ListFines(ctx context.Context, f model.FineFilter) ([]model.Fine, error)
	GetFine(ctx context.Context, actor model.Actor, id int64) (model.Fine, error)
	PayFine(ctx context.Context, actor model.Actor, id int64) (model.Fine, error)
	WriteOff(ctx context.Context, id int64) (model.Fine, error)
}

var (
	_ AuthService        = (*service.Service)(nil)
	_ CatalogService     = (*service.Service)(nil)
	_ CirculationService = (*service.Service)(nil)
)
