package catalog

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Astemirdum/library-portal/portal/internal/api"
)

// Placeholder is shown for a missing author list, description or address.
const Placeholder = "—"

// Material is the catalog card of a book: display fields plus copies summed over
// every library holding it.
type Material struct {
	ID              string `json:"id"`
	BookID          int64  `json:"bookId"`
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	Genre           string `json:"genre"`
	Year            string `json:"year"`
	Description     string `json:"description"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
}

type Stock struct {
	Total     int
	Available int
}

func AuthorName(a api.Author) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Surname, a.Name, deref(a.MiddleName)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func AuthorNames(authors []api.Author) map[int64]string {
	m := make(map[int64]string, len(authors))
	for _, a := range authors {
		m[a.ID] = AuthorName(a)
	}
	return m
}

func AggregateInventories(items []api.Inventory) map[int64]Stock {
	m := make(map[int64]Stock)
	for _, it := range items {
		s := m[it.BookID]
		s.Total += it.TotalCopies
		s.Available += it.AvailableCopies
		m[it.BookID] = s
	}
	return m
}

// PublicationYear returns the leading four digits of a publication date, or "".
func PublicationYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	y := date[:4]
	for _, r := range y {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return y
}

func MapBook(b api.Book, authors map[int64]string, stock map[int64]Stock) Material {
	names := make([]string, 0, len(b.AuthorIDs))
	for _, id := range b.AuthorIDs {
		if n := authors[id]; n != "" {
			names = append(names, n)
		}
	}
	m := Material{
		ID:              strconv.FormatInt(b.ID, 10),
		BookID:          b.ID,
		Title:           b.Title,
		Authors:         strings.Join(names, ", "),
		Genre:           b.Genre,
		Year:            PublicationYear(b.PublicationYear),
		TotalCopies:     stock[b.ID].Total,
		AvailableCopies: stock[b.ID].Available,
	}
	if m.Authors == "" {
		m.Authors = Placeholder
	}
	desc := b.PublishingHouse
	if b.ISBN != "" {
		desc += " · ISBN " + b.ISBN
	}
	if m.Description = strings.TrimSpace(desc); m.Description == "" {
		m.Description = Placeholder
	}
	return m
}

func MapBooks(books []api.Book, authors map[int64]string, stock map[int64]Stock) []Material {
	out := make([]Material, 0, len(books))
	for _, b := range books {
		out = append(out, MapBook(b, authors, stock))
	}
	return out
}

type Facets struct {
	Genres []string `json:"genres"`
	Years  []int    `json:"years"`
}

// BookFacets lists distinct genres in collation order and distinct years newest first.
func BookFacets(books []api.Book) Facets {
	f := Facets{Genres: []string{}, Years: []int{}}
	genres := make(map[string]struct{})
	years := make(map[int]struct{})
	for _, b := range books {
		if b.Genre != "" {
			if _, ok := genres[b.Genre]; !ok {
				genres[b.Genre] = struct{}{}
				f.Genres = append(f.Genres, b.Genre)
			}
		}
		if y, err := strconv.Atoi(PublicationYear(b.PublicationYear)); err == nil {
			if _, ok := years[y]; !ok {
				years[y] = struct{}{}
				f.Years = append(f.Years, y)
			}
		}
	}
	collate.New(language.Russian).SortStrings(f.Genres)
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))
	return f
}
