package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/mockapi"
	"github.com/Astemirdum/library-portal/mockapi/mockapitest"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/Astemirdum/library-portal/portal/internal/api"
)

type countingSource struct {
	*api.Client
	authors     atomic.Int32
	inventories atomic.Int32
	libraries   atomic.Int32
	failAuthors atomic.Bool
}

func (s *countingSource) Authors(ctx context.Context, p api.ListParams) ([]api.Author, error) {
	s.authors.Add(1)
	if s.failAuthors.Load() {
		return nil, errors.New("backend down")
	}
	return s.Client.Authors(ctx, p)
}

func (s *countingSource) Inventories(ctx context.Context, p api.ListParams) ([]api.Inventory, error) {
	s.inventories.Add(1)
	return s.Client.Inventories(ctx, p)
}

func (s *countingSource) Libraries(ctx context.Context, p api.ListParams) ([]api.Library, error) {
	s.libraries.Add(1)
	return s.Client.Libraries(ctx, p)
}

func loggedIn(t *testing.T, url, email, password string) *api.Client {
	t.Helper()
	var token string
	cb := api.NewBreaker(config.Breaker{RecordLength: 20, Timeout: time.Second, Percentile: 0.5, RecoveryRequests: 1})
	c := api.New(config.API{URL: url, Timeout: 5 * time.Second}, cb, api.TokenFunc(func(context.Context) string { return token }), zap.NewNop())
	var err error
	token, err = c.Login(context.Background(), email, password)
	require.NoError(t, err)
	return c
}

func byID(cards []Material) map[int64]Material {
	m := make(map[int64]Material, len(cards))
	for _, c := range cards {
		m[c.BookID] = c
	}
	return m
}

func TestCache_Catalog(t *testing.T) {
	t.Parallel()
	srv := mockapitest.NewServer(t)
	src := &countingSource{Client: loggedIn(t, srv.URL, mockapi.DemoReaderEmail, mockapi.DemoReaderPassword)}
	cache := NewCache(src, zap.NewNop())
	ctx := context.Background()

	cards, err := cache.Catalog(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, cards, 4)
	got := byID(cards)
	require.Equal(t, Material{
		ID: "2", BookID: 2, Title: "Design Patterns",
		Authors:     "Gamma Erich, Helm Richard, Johnson Ralph, Vlissides John",
		Genre:       "Software",
		Year:        "1994",
		Description: "Addison-Wesley · ISBN 9780201633610",
		TotalCopies: 4, AvailableCopies: 4,
	}, got[2])
	require.Equal(t, 6, got[1].TotalCopies)
	require.Equal(t, "Булгаков Михаил Афанасьевич", got[4].Authors)

	fiction, err := cache.Catalog(ctx, Query{Genre: " fiction "})
	require.NoError(t, err)
	require.Len(t, fiction, 1)
	require.Equal(t, int64(4), fiction[0].BookID)

	nineties, err := cache.Catalog(ctx, Query{YearFrom: intPtr(2000), YearTo: intPtr(1990), Sort: SortYearDesc})
	require.NoError(t, err)
	require.Equal(t, []string{"3", "2"}, ids(nineties))

	require.Equal(t, int32(1), src.authors.Load())
	require.Equal(t, int32(1), src.inventories.Load())

	facets, err := cache.Facets(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{2008, 1999, 1994, 1967}, facets.Years)
	require.ElementsMatch(t, []string{"Fiction", "Software"}, facets.Genres)

	m, ok, err := cache.Material(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "The Pragmatic Programmer", m.Title)
	_, ok, err = cache.Material(ctx, 42)
	require.NoError(t, err)
	require.False(t, ok)

	titles, err := cache.Suggest(ctx, "de", false)
	require.NoError(t, err)
	require.Equal(t, []string{"Design Patterns", "Clean Code"}, titles)
	names, err := cache.Suggest(ctx, "hun", true)
	require.NoError(t, err)
	require.Equal(t, []string{"Hunt Andrew"}, names)
}

func TestCache_InventoryInvalidation(t *testing.T) {
	t.Parallel()
	srv := mockapitest.NewServer(t)
	ctx := context.Background()
	reader := loggedIn(t, srv.URL, mockapi.DemoReaderEmail, mockapi.DemoReaderPassword)
	src := &countingSource{Client: loggedIn(t, srv.URL, mockapi.DemoLibrarianEmail, mockapi.DemoLibrarianPassword)}
	cache := NewCache(src, zap.NewNop())

	available := func() int {
		m, ok, err := cache.Material(ctx, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return m.AvailableCopies
	}
	require.Equal(t, 4, available())

	_, err := reader.Reserve(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, 4, available())
	cache.InvalidateInventories()
	require.Equal(t, 3, available())

	_, err = cache.PatchInventory(ctx, 3, api.InventoryRequest{TotalCopies: 10})
	require.NoError(t, err)
	require.Equal(t, 9, available())

	_, err = cache.CreateInventory(ctx, api.InventoryRequest{BookID: 2, LibraryID: 2, TotalCopies: 2})
	require.NoError(t, err)
	require.Equal(t, 11, available())
	require.Equal(t, int32(1), src.authors.Load())
	require.Equal(t, int32(4), src.inventories.Load())
}

func TestCache_Libraries(t *testing.T) {
	t.Parallel()
	srv := mockapitest.NewServer(t)
	src := &countingSource{Client: loggedIn(t, srv.URL, mockapi.DemoReaderEmail, mockapi.DemoReaderPassword)}
	cache := NewCache(src, zap.NewNop())
	ctx := context.Background()

	id, err := cache.DefaultLibraryID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	addrs, err := cache.LibraryAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, map[int64]string{
		1: "Россия, Москва, ул. Тверская, 1",
		2: "Санкт-Петербург, Невский пр., 28",
	}, addrs)
	require.Equal(t, int32(1), src.libraries.Load())

	cache.Invalidate()
	_, err = cache.LibraryAddresses(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), src.libraries.Load())
}

func TestCache_FailedFetchNotKept(t *testing.T) {
	t.Parallel()
	srv := mockapitest.NewServer(t)
	src := &countingSource{Client: loggedIn(t, srv.URL, mockapi.DemoReaderEmail, mockapi.DemoReaderPassword)}
	cache := NewCache(src, zap.NewNop())
	ctx := context.Background()

	src.failAuthors.Store(true)
	_, err := cache.Catalog(ctx, Query{})
	require.Error(t, err)

	src.failAuthors.Store(false)
	cards, err := cache.Catalog(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, cards, 4)
	require.Equal(t, int32(2), src.authors.Load())
}

type stubLibraries struct {
	Source
	libs []api.Library
}

func (s stubLibraries) Libraries(context.Context, api.ListParams) ([]api.Library, error) {
	return s.libs, nil
}

func TestCache_DefaultLibraryID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		libs []api.Library
		want int64
	}{
		{name: "none", want: DefaultLibraryFallback},
		{name: "first active", libs: []api.Library{{ID: 3, Status: "CLOSED"}, {ID: 5, Status: api.LibraryActive}, {ID: 6, Status: api.LibraryActive}}, want: 5},
		{name: "first listed", libs: []api.Library{{ID: 7, Status: "CLOSED"}, {ID: 2, Status: "CLOSED"}}, want: 7},
	}
	for _, tt := range tests {
		cache := NewCache(stubLibraries{libs: tt.libs}, zap.NewNop())
		id, err := cache.DefaultLibraryID(context.Background())
		require.NoError(t, err)
		require.Equal(t, tt.want, id, tt.name)
	}
}
