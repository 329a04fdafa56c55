package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

// Collection is one entity list persisted as a JSON array under a fixed key.
type Collection[T any] struct {
	Key string
}

func (c Collection[T]) Load(ctx context.Context, q kvstore.Querier) ([]T, error) {
	return kvstore.Load[T](ctx, q, c.Key)
}

func (c Collection[T]) Save(ctx context.Context, q kvstore.Querier, items []T) error {
	return kvstore.Save(ctx, q, c.Key, items)
}

var (
	Users       = Collection[model.User]{Key: "lib.users"}
	Authors     = Collection[model.Author]{Key: "lib.authors"}
	Books       = Collection[model.Book]{Key: "lib.books"}
	Libraries   = Collection[model.Library]{Key: "lib.libraries"}
	Librarians  = Collection[model.Librarian]{Key: "lib.librarians"}
	Inventories = Collection[model.InventoryRecord]{Key: "lib.inventories"}
	Bookings    = Collection[model.Booking]{Key: "lib.bookings"}
	Issuances   = Collection[model.Issuance]{Key: "lib.issuances"}
	Fines       = Collection[model.Fine]{Key: "lib.fines"}
	ResetTokens = Collection[model.ResetToken]{Key: "lib.resetTokens"}
)

type Repository interface {
	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(q kvstore.Querier) error) error
	// Update runs fn in a transaction: every collection fn saves is committed together.
	Update(ctx context.Context, fn func(q kvstore.Querier) error) error
}

type repository struct {
	store *kvstore.Store
	log   *zap.Logger
}

func NewRepository(store *kvstore.Store, log *zap.Logger) (*repository, error) {
	return &repository{
		store: store,
		log:   log.Named("repo"),
	}, nil
}

func (r *repository) View(ctx context.Context, fn func(q kvstore.Querier) error) error {
	return r.store.View(ctx, func(tx *kvstore.Tx) error { return fn(tx) })
}

func (r *repository) Update(ctx context.Context, fn func(q kvstore.Querier) error) error {
	return r.store.Update(ctx, func(tx *kvstore.Tx) error { return fn(tx) })
}

type identified interface {
	model.User | model.Author | model.Book | model.Library | model.Librarian |
		model.InventoryRecord | model.Booking | model.Issuance | model.Fine
}

// NextID is max(id)+1 over the collection, starting at 1.
func NextID[T identified](items []T) int64 {
	var last int64
	for i := range items {
		if id := idOf(&items[i]); id > last {
			last = id
		}
	}
	return last + 1
}

// Find returns the index of the item with the given id, or -1.
func Find[T identified](items []T, id int64) int {
	for i := range items {
		if idOf(&items[i]) == id {
			return i
		}
	}
	return -1
}

func idOf[T identified](item *T) int64 {
	switch v := any(item).(type) {
	case *model.User:
		return v.ID
	case *model.Author:
		return v.ID
	case *model.Book:
		return v.ID
	case *model.Library:
		return v.ID
	case *model.Librarian:
		return v.ID
	case *model.InventoryRecord:
		return v.ID
	case *model.Booking:
		return v.ID
	case *model.Issuance:
		return v.ID
	case *model.Fine:
		return v.ID
	}
	return 0
}
