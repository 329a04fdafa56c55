package catalog

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/library-portal/portal/internal/api"
)

// DefaultLibraryFallback is used when the backend lists no library at all.
const DefaultLibraryFallback int64 = 1

type Source interface {
	Books(ctx context.Context, p api.ListParams) ([]api.Book, error)
	Authors(ctx context.Context, p api.ListParams) ([]api.Author, error)
	Inventories(ctx context.Context, p api.ListParams) ([]api.Inventory, error)
	Libraries(ctx context.Context, p api.ListParams) ([]api.Library, error)
	CreateInventory(ctx context.Context, req api.InventoryRequest) (api.Inventory, error)
	PatchInventory(ctx context.Context, id int64, req api.InventoryRequest) (api.Inventory, error)
}

// memo holds a value after its first successful fetch. Failed fetches are not kept.
type memo[T any] struct {
	mu  sync.Mutex
	val T
	ok  bool
}

func (m *memo[T]) get(ctx context.Context, fetch func(ctx context.Context) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ok {
		return m.val, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	m.val, m.ok = v, true
	return v, nil
}

func (m *memo[T]) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	m.val, m.ok = zero, false
}

// Cache keeps the slowly changing reference lists of one console session. Book lists
// are always fetched fresh.
type Cache struct {
	src Source
	log *zap.Logger

	authors     memo[map[int64]string]
	inventories memo[map[int64]Stock]
	libraries   memo[[]api.Library]
	defaultLib  memo[int64]
	addresses   memo[map[int64]string]
}

func NewCache(src Source, log *zap.Logger) *Cache {
	return &Cache{src: src, log: log.Named("catalog")}
}

func (c *Cache) Authors(ctx context.Context) (map[int64]string, error) {
	return c.authors.get(ctx, func(ctx context.Context) (map[int64]string, error) {
		list, err := c.src.Authors(ctx, api.All("surname"))
		if err != nil {
			return nil, err
		}
		c.log.Debug("authors cached", zap.Int("count", len(list)))
		return AuthorNames(list), nil
	})
}

func (c *Cache) Inventories(ctx context.Context) (map[int64]Stock, error) {
	return c.inventories.get(ctx, func(ctx context.Context) (map[int64]Stock, error) {
		list, err := c.src.Inventories(ctx, api.All("id"))
		if err != nil {
			return nil, err
		}
		return AggregateInventories(list), nil
	})
}

func (c *Cache) Libraries(ctx context.Context) ([]api.Library, error) {
	return c.libraries.get(ctx, func(ctx context.Context) ([]api.Library, error) {
		return c.src.Libraries(ctx, api.All("id"))
	})
}

// DefaultLibraryID is the first ACTIVE library, else the first listed one.
func (c *Cache) DefaultLibraryID(ctx context.Context) (int64, error) {
	return c.defaultLib.get(ctx, func(ctx context.Context) (int64, error) {
		libs, err := c.Libraries(ctx)
		if err != nil {
			return 0, err
		}
		if len(libs) == 0 {
			return DefaultLibraryFallback, nil
		}
		for _, l := range libs {
			if l.Status == api.LibraryActive {
				return l.ID, nil
			}
		}
		return libs[0].ID, nil
	})
}

func (c *Cache) LibraryAddresses(ctx context.Context) (map[int64]string, error) {
	return c.addresses.get(ctx, func(ctx context.Context) (map[int64]string, error) {
		libs, err := c.Libraries(ctx)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]string, len(libs))
		for _, l := range libs {
			m[l.ID] = FormatLibraryAddress(l.Address)
		}
		return m, nil
	})
}

func booksParams(q Query) api.ListParams {
	p := api.All("title")
	if q.Sort == SortTitleDesc {
		p.SortDir = "desc"
	}
	if g := strings.TrimSpace(q.Genre); g != "" {
		p.Filters = map[string]string{"genre": g}
	}
	return p
}

// materials fetches the books together with the cached lists they are joined with.
func (c *Cache) materials(ctx context.Context, p api.ListParams) ([]api.Book, []Material, error) {
	var (
		books   []api.Book
		authors map[int64]string
		stock   map[int64]Stock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		books, err = c.src.Books(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		authors, err = c.Authors(gctx)
		return err
	})
	g.Go(func() (err error) {
		stock, err = c.Inventories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return books, MapBooks(books, authors, stock), nil
}

func (c *Cache) Catalog(ctx context.Context, q Query) ([]Material, error) {
	_, cards, err := c.materials(ctx, booksParams(q))
	if err != nil {
		return nil, err
	}
	return Apply(cards, q), nil
}

func (c *Cache) AllMaterials(ctx context.Context) ([]Material, error) {
	_, cards, err := c.materials(ctx, api.All("title"))
	return cards, err
}

func (c *Cache) Material(ctx context.Context, bookID int64) (Material, bool, error) {
	cards, err := c.AllMaterials(ctx)
	if err != nil {
		return Material{}, false, err
	}
	for _, m := range cards {
		if m.BookID == bookID {
			return m, true, nil
		}
	}
	return Material{}, false, nil
}

func (c *Cache) Facets(ctx context.Context) (Facets, error) {
	books, _, err := c.materials(ctx, api.All("title"))
	if err != nil {
		return Facets{}, err
	}
	return BookFacets(books), nil
}

func (c *Cache) Suggest(ctx context.Context, input string, byAuthor bool) ([]string, error) {
	cards, err := c.AllMaterials(ctx)
	if err != nil {
		return nil, err
	}
	if byAuthor {
		return AuthorSuggestions(cards, input), nil
	}
	return TitleSuggestions(cards, input), nil
}

func (c *Cache) RawInventories(ctx context.Context) ([]api.Inventory, error) {
	return c.src.Inventories(ctx, api.All("id"))
}

func (c *Cache) CreateInventory(ctx context.Context, req api.InventoryRequest) (api.Inventory, error) {
	inv, err := c.src.CreateInventory(ctx, req)
	if err == nil {
		c.InvalidateInventories()
	}
	return inv, err
}

func (c *Cache) PatchInventory(ctx context.Context, id int64, req api.InventoryRequest) (api.Inventory, error) {
	inv, err := c.src.PatchInventory(ctx, id, req)
	if err == nil {
		c.InvalidateInventories()
	}
	return inv, err
}

// InvalidateInventories drops the cached availability. Reservations, issues and
// returns change it as well.
func (c *Cache) InvalidateInventories() {
	c.inventories.reset()
}

func (c *Cache) Invalidate() {
	c.authors.reset()
	c.inventories.reset()
	c.libraries.reset()
	c.defaultLib.reset()
	c.addresses.reset()
}
