package circulation

import (
	"sort"
	"strconv"
	"time"

	"github.com/Astemirdum/library-portal/portal/internal/api"
)

// UnknownTitle stands in for a book missing from the catalog.
const UnknownTitle = "Unknown"

const dateLayout = "2006-01-02"

type IssuanceStatus string

const (
	IssuanceOpen     IssuanceStatus = "OPEN"
	IssuanceOverdue  IssuanceStatus = "OVERDUE"
	IssuanceReturned IssuanceStatus = "RETURNED"
)

func ParseIssuanceStatus(s string) (IssuanceStatus, bool) {
	switch st := IssuanceStatus(s); st {
	case IssuanceOpen, IssuanceOverdue, IssuanceReturned:
		return st, true
	}
	return "", false
}

// loanStatus is the loan status the backend filters on for an issuance status.
func (s IssuanceStatus) loanStatus() api.LoanStatus {
	if s == IssuanceOpen {
		return api.LoanIssued
	}
	return api.LoanStatus(s)
}

type Booking struct {
	ID              int64          `json:"id"`
	Status          api.LoanStatus `json:"status"`
	BookingDate     string         `json:"bookingDate"`
	BookingDeadline string         `json:"bookingDeadline"`
	ReaderID        int64          `json:"readerId"`
	BookID          int64          `json:"materialId"`
	Title           string         `json:"materialTitle"`
	LibraryID       int64          `json:"libraryId"`
	Address         string         `json:"libraryAddress,omitempty"`

	reservedAt *time.Time
}

type Issuance struct {
	ID             int64          `json:"id"`
	IssuanceID     int64          `json:"issuanceId"`
	Status         IssuanceStatus `json:"status"`
	IssuanceDate   string         `json:"issuanceDate"`
	ReturnDeadline string         `json:"returnDeadline"`
	ReturnedAt     string         `json:"returnedAt,omitempty"`
	RenewCount     int            `json:"renewCount"`
	ReaderID       int64          `json:"readerId"`
	BookID         int64          `json:"materialId"`
	Title          string         `json:"materialTitle"`
	LibraryID      int64          `json:"libraryId"`
	Address        string         `json:"libraryAddress,omitempty"`

	issuedAt *time.Time
	dueAt    *time.Time
}

// isBooking keeps the statuses a booking can be seen in.
func isBooking(s api.LoanStatus) bool {
	switch s {
	case api.LoanPending, api.LoanReserved, api.LoanCancelled, api.LoanIssued:
		return true
	}
	return false
}

func activeBooking(s api.LoanStatus) bool {
	return s == api.LoanPending || s == api.LoanReserved
}

func isoDate(t *time.Time, now time.Time) string {
	if t == nil {
		return now.UTC().Format(dateLayout)
	}
	return t.UTC().Format(dateLayout)
}

type lookup struct {
	titles    map[int64]string
	addresses map[int64]string
	now       time.Time
}

func (l lookup) title(bookID int64) string {
	if t, ok := l.titles[bookID]; ok && t != "" {
		return t
	}
	return UnknownTitle
}

func (l lookup) booking(loan api.Loan) Booking {
	return Booking{
		ID:              loan.ID,
		Status:          loan.Status,
		BookingDate:     isoDate(loan.ReservedAt, l.now),
		BookingDeadline: isoDate(loan.ReservedUntil, l.now),
		ReaderID:        loan.UserID,
		BookID:          loan.BookID,
		Title:           l.title(loan.BookID),
		LibraryID:       loan.LibraryID,
		Address:         l.addresses[loan.LibraryID],
		reservedAt:      loan.ReservedAt,
	}
}

func (l lookup) bookings(loans []api.Loan) []Booking {
	out := make([]Booking, 0, len(loans))
	for _, loan := range loans {
		if isBooking(loan.Status) {
			out = append(out, l.booking(loan))
		}
	}
	return out
}

func issuanceStatus(s api.LoanStatus) IssuanceStatus {
	switch s {
	case api.LoanOverdue:
		return IssuanceOverdue
	case api.LoanReturned:
		return IssuanceReturned
	}
	return IssuanceOpen
}

func (l lookup) issuances(loans []api.Loan) []Issuance {
	out := make([]Issuance, 0, len(loans))
	for _, loan := range loans {
		if loan.IssuanceID == nil {
			continue
		}
		iss := Issuance{
			ID:             loan.ID,
			IssuanceID:     *loan.IssuanceID,
			Status:         issuanceStatus(loan.Status),
			IssuanceDate:   isoDate(loan.IssuedAt, l.now),
			ReturnDeadline: isoDate(loan.DueAt, l.now),
			RenewCount:     loan.RenewCount,
			ReaderID:       loan.UserID,
			BookID:         loan.BookID,
			Title:          l.title(loan.BookID),
			LibraryID:      loan.LibraryID,
			Address:        l.addresses[loan.LibraryID],
			issuedAt:       loan.IssuedAt,
			dueAt:          loan.DueAt,
		}
		if loan.ReturnedAt != nil {
			iss.ReturnedAt = loan.ReturnedAt.UTC().Format(dateLayout)
		}
		out = append(out, iss)
	}
	return out
}

// after orders present times newest first and missing ones last.
func after(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a != nil && b == nil
	}
	return a.After(*b)
}

func sortBookingsByReserved(items []Booking) {
	sort.SliceStable(items, func(i, j int) bool { return after(items[i].reservedAt, items[j].reservedAt) })
}

// sortBookingsByDate compares calendar days only; same-day bookings keep the backend order.
func sortBookingsByDate(items []Booking) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].BookingDate > items[j].BookingDate })
}

func sortIssuancesByIssued(items []Issuance) {
	sort.SliceStable(items, func(i, j int) bool { return after(items[i].issuedAt, items[j].issuedAt) })
}

func sortIssuancesByDeadline(items []Issuance) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ReturnDeadline < items[j].ReturnDeadline })
}

func sortFinesByDue(items []api.Fine) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].DueDate.After(items[j].DueDate) })
}

func key(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}
