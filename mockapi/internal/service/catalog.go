package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
)

const (
	defaultPageSize = 20
	maxPageSize     = 10000
)

func paginate[T any](items []T, p model.Paging) []T {
	page, size := p.Page, p.Size
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	from := (page - 1) * size
	if from >= len(items) {
		return []T{}
	}
	to := from + size
	if to > len(items) {
		to = len(items)
	}
	return items[from:to]
}

// sortBy orders items stably by the comparator registered for key; unknown keys
// fall back to "id".
func sortBy[T any](items []T, p model.Paging, cmps map[string]func(a, b *T) int) {
	cmp, ok := cmps[p.SortBy]
	if !ok {
		cmp = cmps["id"]
	}
	desc := strings.EqualFold(p.SortDir, "desc")
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(&items[i], &items[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func textComparator() func(a, b string) int {
	c := collate.New(language.Russian, collate.IgnoreCase)
	return c.CompareString
}

func filterInt(p model.Paging, key string) (int64, bool) {
	v, ok := p.Filters[key]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1, true
	}
	return n, true
}

func (s *Service) ListBooks(ctx context.Context, p model.Paging) ([]model.Book, error) {
	var books []model.Book
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		books, err = repository.Books.Load(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	if genre := strings.TrimSpace(p.Filters["genre"]); genre != "" {
		filtered := books[:0]
		for _, b := range books {
			if strings.EqualFold(b.Genre, genre) {
				filtered = append(filtered, b)
			}
		}
		books = filtered
	}
	text := textComparator()
	sortBy(books, p, map[string]func(a, b *model.Book) int{
		"id":              func(a, b *model.Book) int { return cmpInt64(a.ID, b.ID) },
		"title":           func(a, b *model.Book) int { return text(a.Title, b.Title) },
		"genre":           func(a, b *model.Book) int { return text(a.Genre, b.Genre) },
		"publicationYear": func(a, b *model.Book) int { return strings.Compare(a.PublicationYear, b.PublicationYear) },
	})
	return paginate(books, p), nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (model.Book, error) {
	var book model.Book
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		books, err := repository.Books.Load(ctx, q)
		if err != nil {
			return err
		}
		i := repository.Find(books, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		book = books[i]
		return nil
	})
	return book, err
}

func (s *Service) ListAuthors(ctx context.Context, p model.Paging) ([]model.Author, error) {
	var authors []model.Author
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		authors, err = repository.Authors.Load(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	text := textComparator()
	sortBy(authors, p, map[string]func(a, b *model.Author) int{
		"id":      func(a, b *model.Author) int { return cmpInt64(a.ID, b.ID) },
		"surname": func(a, b *model.Author) int { return text(a.Surname, b.Surname) },
		"name":    func(a, b *model.Author) int { return text(a.Name, b.Name) },
	})
	return paginate(authors, p), nil
}

func (s *Service) ListLibraries(ctx context.Context, p model.Paging) ([]model.Library, error) {
	var libraries []model.Library
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		libraries, err = repository.Libraries.Load(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortBy(libraries, p, map[string]func(a, b *model.Library) int{
		"id":     func(a, b *model.Library) int { return cmpInt64(a.ID, b.ID) },
		"status": func(a, b *model.Library) int { return strings.Compare(string(a.Status), string(b.Status)) },
	})
	return paginate(libraries, p), nil
}

type shelf struct {
	bookID, libraryID int64
}

// availability derives free copies per (book, library):
// max(0, total - active bookings - active issuances).
func availability(inventories []model.InventoryRecord, bookings []model.Booking, issuances []model.Issuance) map[shelf]int {
	held := make(map[shelf]int)
	byID := make(map[int64]model.Booking, len(bookings))
	for _, b := range bookings {
		byID[b.ID] = b
		if b.Status.Active() {
			held[shelf{b.BookID, b.LibraryID}]++
		}
	}
	for _, i := range issuances {
		if !i.Status.Active() {
			continue
		}
		if b, ok := byID[i.BookingID]; ok {
			held[shelf{b.BookID, b.LibraryID}]++
		}
	}
	free := make(map[shelf]int, len(inventories))
	for _, inv := range inventories {
		k := shelf{inv.BookID, inv.LibraryID}
		free[k] += inv.TotalCopies
	}
	for k, total := range free {
		n := total - held[k]
		if n < 0 {
			n = 0
		}
		free[k] = n
	}
	return free
}

type circulationState struct {
	books       []model.Book
	inventories []model.InventoryRecord
	bookings    []model.Booking
	issuances   []model.Issuance
}

func loadCirculation(ctx context.Context, q kvstore.Querier) (circulationState, error) {
	var (
		st  circulationState
		err error
	)
	if st.books, err = repository.Books.Load(ctx, q); err != nil {
		return st, err
	}
	if st.inventories, err = repository.Inventories.Load(ctx, q); err != nil {
		return st, err
	}
	if st.bookings, err = repository.Bookings.Load(ctx, q); err != nil {
		return st, err
	}
	if st.issuances, err = repository.Issuances.Load(ctx, q); err != nil {
		return st, err
	}
	return st, nil
}

// withAvailability splits the free copies of a shelf across its inventory records in
// id order, so several records for the same shelf never report more than exists.
func withAvailability(st circulationState) []model.BookInventory {
	free := availability(st.inventories, st.bookings, st.issuances)
	out := make([]model.BookInventory, 0, len(st.inventories))
	for _, inv := range st.inventories {
		k := shelf{inv.BookID, inv.LibraryID}
		n := free[k]
		if n > inv.TotalCopies {
			n = inv.TotalCopies
		}
		free[k] -= n
		out = append(out, model.BookInventory{InventoryRecord: inv, AvailableCopies: n})
	}
	return out
}

func (s *Service) ListInventories(ctx context.Context, p model.Paging) ([]model.BookInventory, error) {
	var st circulationState
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		var err error
		st, err = loadCirculation(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	items := withAvailability(st)
	bookID, byBook := filterInt(p, "bookId")
	libraryID, byLibrary := filterInt(p, "libraryId")
	if byBook || byLibrary {
		filtered := items[:0]
		for _, it := range items {
			if (byBook && it.BookID != bookID) || (byLibrary && it.LibraryID != libraryID) {
				continue
			}
			filtered = append(filtered, it)
		}
		items = filtered
	}
	sortBy(items, p, map[string]func(a, b *model.BookInventory) int{
		"id":              func(a, b *model.BookInventory) int { return cmpInt64(a.ID, b.ID) },
		"bookId":          func(a, b *model.BookInventory) int { return cmpInt64(a.BookID, b.BookID) },
		"libraryId":       func(a, b *model.BookInventory) int { return cmpInt64(a.LibraryID, b.LibraryID) },
		"availableCopies": func(a, b *model.BookInventory) int { return cmpInt64(int64(a.AvailableCopies), int64(b.AvailableCopies)) },
	})
	return paginate(items, p), nil
}

func (s *Service) CreateInventory(ctx context.Context, req model.CreateInventoryRequest) (model.BookInventory, error) {
	if req.TotalCopies < 0 {
		return model.BookInventory{}, errs.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var created model.BookInventory
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		st, err := loadCirculation(ctx, q)
		if err != nil {
			return err
		}
		if repository.Find(st.books, req.BookID) < 0 {
			return errs.ErrNotFound
		}
		libraries, err := repository.Libraries.Load(ctx, q)
		if err != nil {
			return err
		}
		if repository.Find(libraries, req.LibraryID) < 0 {
			return errs.ErrNotFound
		}
		rec := model.InventoryRecord{
			ID:          repository.NextID(st.inventories),
			BookID:      req.BookID,
			LibraryID:   req.LibraryID,
			TotalCopies: req.TotalCopies,
		}
		st.inventories = append(st.inventories, rec)
		if err := repository.Inventories.Save(ctx, q, st.inventories); err != nil {
			return err
		}
		created = inventoryByID(withAvailability(st), rec.ID)
		return nil
	})
	return created, err
}

func (s *Service) PatchInventory(ctx context.Context, id int64, req model.PatchInventoryRequest) (model.BookInventory, error) {
	if req.TotalCopies != nil && *req.TotalCopies < 0 {
		return model.BookInventory{}, errs.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var patched model.BookInventory
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		st, err := loadCirculation(ctx, q)
		if err != nil {
			return err
		}
		i := repository.Find(st.inventories, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		if req.TotalCopies != nil {
			st.inventories[i].TotalCopies = *req.TotalCopies
		}
		if err := repository.Inventories.Save(ctx, q, st.inventories); err != nil {
			return err
		}
		patched = inventoryByID(withAvailability(st), id)
		return nil
	})
	return patched, err
}

func inventoryByID(items []model.BookInventory, id int64) model.BookInventory {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return model.BookInventory{}
}
