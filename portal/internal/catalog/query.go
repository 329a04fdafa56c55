package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Sort string

const (
	SortRelevance     Sort = "relevance"
	SortTitleAsc      Sort = "title_asc"
	SortTitleDesc     Sort = "title_desc"
	SortAvailableDesc Sort = "available_desc"
	SortYearDesc      Sort = "year_desc"
	SortYearAsc       Sort = "year_asc"
)

var Sorts = []Sort{SortRelevance, SortTitleAsc, SortTitleDesc, SortAvailableDesc, SortYearDesc, SortYearAsc}

func ParseSort(s string) (Sort, error) {
	if s == "" {
		return SortRelevance, nil
	}
	for _, v := range Sorts {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Query is a catalog search. Nil year bounds are inactive.
type Query struct {
	Q             string
	Author        string
	Genre         string
	YearFrom      *int
	YearTo        *int
	AvailableOnly bool
	Sort          Sort
}

// missing years sort last in both directions
const (
	yearLastDesc = -999999
	yearLastAsc  = 999999
)

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchesText reports whether q is a substring of the card's searchable fields.
func MatchesText(m Material, q string) bool {
	qq := fold(q)
	if qq == "" {
		return true
	}
	parts := make([]string, 0, 6)
	for _, p := range []string{m.ID, m.Title, m.Authors, m.Genre, m.Year, m.Description} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Contains(fold(strings.Join(parts, " ")), qq)
}

func MatchesAuthor(m Material, author string) bool {
	return strings.Contains(fold(m.Authors), fold(author))
}

// YearRange orders the bounds; a single bound is both ends of the range. ok is false
// when neither is set.
func YearRange(from, to *int) (lo, hi int, ok bool) {
	switch {
	case from != nil && to != nil:
		lo, hi = *from, *to
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi, true
	case from != nil:
		return *from, *from, true
	case to != nil:
		return *to, *to, true
	}
	return 0, 0, false
}

func inYears(m Material, q Query) bool {
	lo, hi, ok := YearRange(q.YearFrom, q.YearTo)
	if !ok {
		return true
	}
	y, err := strconv.Atoi(m.Year)
	if err != nil {
		return false
	}
	return y >= lo && y <= hi
}

// Apply filters and orders cards already fetched from the backend. The input slice is
// not modified.
func Apply(cards []Material, q Query) []Material {
	out := make([]Material, 0, len(cards))
	for _, m := range cards {
		if q.Q != "" && !MatchesText(m, q.Q) {
			continue
		}
		if q.Author != "" && !MatchesAuthor(m, q.Author) {
			continue
		}
		if !inYears(m, q) {
			continue
		}
		if q.AvailableOnly && m.AvailableCopies <= 0 {
			continue
		}
		out = append(out, m)
	}
	SortMaterials(out, q.Sort)
	return out
}

func yearKey(m Material, missing int) int {
	y, err := strconv.Atoi(m.Year)
	if err != nil {
		return missing
	}
	return y
}

// SortMaterials orders cards in place, stably. Relevance keeps the given order.
func SortMaterials(cards []Material, s Sort) {
	var less func(a, b Material) bool
	switch s {
	case SortTitleAsc, SortTitleDesc:
		c := collate.New(language.Russian)
		if s == SortTitleAsc {
			less = func(a, b Material) bool { return c.CompareString(a.Title, b.Title) < 0 }
		} else {
			less = func(a, b Material) bool { return c.CompareString(a.Title, b.Title) > 0 }
		}
	case SortAvailableDesc:
		less = func(a, b Material) bool { return a.AvailableCopies > b.AvailableCopies }
	case SortYearDesc:
		less = func(a, b Material) bool { return yearKey(a, yearLastDesc) > yearKey(b, yearLastDesc) }
	case SortYearAsc:
		less = func(a, b Material) bool { return yearKey(a, yearLastAsc) < yearKey(b, yearLastAsc) }
	default:
		return
	}
	sort.SliceStable(cards, func(i, j int) bool { return less(cards[i], cards[j]) })
}
