package api

import (
	"net/url"
	"strconv"
	"time"
)

type Book struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	AuthorIDs       []int64 `json:"authorIds"`
	LibraryIDs      []int64 `json:"libraryIds"`
	PublishingHouse string  `json:"publishingHouse"`
	PublicationYear string  `json:"publicationYear"`
	Genre           string  `json:"genre"`
	Language        string  `json:"language"`
	ISBN            string  `json:"isbn"`
}

type Author struct {
	ID         int64   `json:"id"`
	Surname    string  `json:"surname"`
	Name       string  `json:"name"`
	MiddleName *string `json:"middleName"`
	BookIDs    []int64 `json:"bookIds"`
}

const LibraryActive = "ACTIVE"

type Library struct {
	ID          int64          `json:"id"`
	Address     map[string]any `json:"address"`
	StaffNumber int            `json:"staffNumber"`
	Status      string         `json:"status"`
	BookIDs     []int64        `json:"bookIds"`
}

type Inventory struct {
	ID              int64 `json:"id"`
	BookID          int64 `json:"bookId"`
	LibraryID       int64 `json:"libraryId"`
	TotalCopies     int   `json:"totalCopies"`
	AvailableCopies int   `json:"availableCopies"`
}

type InventoryRequest struct {
	BookID          int64 `json:"bookId,omitempty"`
	LibraryID       int64 `json:"libraryId,omitempty"`
	TotalCopies     int   `json:"totalCopies"`
	AvailableCopies int   `json:"availableCopies"`
}

type Librarian struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	LibraryID *int64 `json:"libraryId"`
}

type LoanStatus string

const (
	LoanPending   LoanStatus = "PENDING"
	LoanReserved  LoanStatus = "RESERVED"
	LoanIssued    LoanStatus = "ISSUED"
	LoanOverdue   LoanStatus = "OVERDUE"
	LoanReturned  LoanStatus = "RETURNED"
	LoanCancelled LoanStatus = "CANCELLED"
)

type Loan struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"userId"`
	BookID        int64      `json:"bookId"`
	LibraryID     int64      `json:"libraryId"`
	IssuanceID    *int64     `json:"issuanceId"`
	Status        LoanStatus `json:"status"`
	RenewCount    int        `json:"renewCount"`
	ReservedAt    *time.Time `json:"reservedAt"`
	ReservedUntil *time.Time `json:"reservedUntil"`
	IssuedAt      *time.Time `json:"issuedAt"`
	DueAt         *time.Time `json:"dueAt"`
	ReturnedAt    *time.Time `json:"returnedAt"`
}

type FineState string

const (
	FineUnpaid    FineState = "UNPAID"
	FinePaid      FineState = "PAID"
	FineCancelled FineState = "CANCELLED"
)

type Fine struct {
	ID          int64      `json:"id"`
	ReaderID    int64      `json:"readerId"`
	IssuanceID  int64      `json:"issuanceId"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Amount      float64    `json:"amount"`
	State       FineState  `json:"state"`
	PaymentDate *time.Time `json:"paymentDate"`
	WrittenOff  bool       `json:"writtenOff"`
}

// ListParams are the paging, sorting and filter.* query parameters of list endpoints.
type ListParams struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
	Filters map[string]string
}

// ReferenceSize is large enough to fetch a whole reference list in one page.
const ReferenceSize = 10000

func All(sortBy string) ListParams {
	return ListParams{Page: 1, Size: ReferenceSize, SortBy: sortBy, SortDir: "asc"}
}

func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		v.Set("size", strconv.Itoa(p.Size))
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.SortDir != "" {
		v.Set("sortDir", p.SortDir)
	}
	for k, val := range p.Filters {
		if val != "" {
			v.Set("filter."+k, val)
		}
	}
	return v
}

type LoanQuery struct {
	Q      string
	Status string
}

type FineQuery struct {
	Q     string
	State string
}
