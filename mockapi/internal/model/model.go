package model

import "time"

type Role string

const (
	// RoleUser is what self-registered accounts carry on the wire; clients read it as READER.
	RoleUser      Role = "USER"
	RoleReader    Role = "READER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Staff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ResetToken struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
}

type Author struct {
	ID         int64   `json:"id"`
	Surname    string  `json:"surname"`
	Name       string  `json:"name"`
	MiddleName *string `json:"middleName,omitempty"`
	BookIDs    []int64 `json:"bookIds"`
}

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

type LibraryStatus string

const (
	LibraryActive LibraryStatus = "ACTIVE"
	LibraryClosed LibraryStatus = "CLOSED"
)

type Library struct {
	ID          int64          `json:"id"`
	Address     map[string]any `json:"address"`
	StaffNumber int            `json:"staffNumber"`
	Status      LibraryStatus  `json:"status"`
	BookIDs     []int64        `json:"bookIds"`
}

type Librarian struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	LibraryID *int64 `json:"libraryId"`
}

// InventoryRecord is what gets stored; availability is derived on read.
type InventoryRecord struct {
	ID          int64 `json:"id"`
	BookID      int64 `json:"bookId"`
	LibraryID   int64 `json:"libraryId"`
	TotalCopies int   `json:"totalCopies"`
}

type BookInventory struct {
	InventoryRecord
	AvailableCopies int `json:"availableCopies"`
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingReserved  BookingStatus = "RESERVED"
	BookingIssued    BookingStatus = "ISSUED"
	BookingCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingReserved
}

type Booking struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"userId"`
	BookID        int64         `json:"bookId"`
	LibraryID     int64         `json:"libraryId"`
	LibrarianID   *int64        `json:"librarianId,omitempty"`
	Status        BookingStatus `json:"status"`
	ReservedAt    time.Time     `json:"reservedAt"`
	ReservedUntil time.Time     `json:"reservedUntil"`
}

type IssuanceStatus string

const (
	IssuanceOpen     IssuanceStatus = "OPEN"
	IssuanceOverdue  IssuanceStatus = "OVERDUE"
	IssuanceReturned IssuanceStatus = "RETURNED"
)

func (s IssuanceStatus) Active() bool {
	return s == IssuanceOpen || s == IssuanceOverdue
}

type Issuance struct {
	ID         int64          `json:"id"`
	BookingID  int64          `json:"bookingId"`
	IssuedAt   time.Time      `json:"issuedAt"`
	DueAt      time.Time      `json:"dueAt"`
	ReturnedAt *time.Time     `json:"returnedAt,omitempty"`
	RenewCount int            `json:"renewCount"`
	Status     IssuanceStatus `json:"status"`
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
	Amount      int64      `json:"amount"`
	State       FineState  `json:"state"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
	WrittenOff  bool       `json:"writtenOff"`
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

// BookLoan is a booking together with the issuance made from it, if any.
type BookLoan struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"userId"`
	BookID        int64      `json:"bookId"`
	LibraryID     int64      `json:"libraryId"`
	IssuanceID    *int64     `json:"issuanceId,omitempty"`
	Status        LoanStatus `json:"status"`
	RenewCount    int        `json:"renewCount"`
	ReservedAt    *time.Time `json:"reservedAt"`
	ReservedUntil *time.Time `json:"reservedUntil"`
	IssuedAt      *time.Time `json:"issuedAt"`
	DueAt         *time.Time `json:"dueAt"`
	ReturnedAt    *time.Time `json:"returnedAt"`
}

type Actor struct {
	UserID int64
	Email  string
	Role   Role
}

type Paging struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
	Filters map[string]string
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Role     Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordResponse struct {
	ResetToken string `json:"resetToken,omitempty"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type ReserveRequest struct {
	BookID    int64 `json:"bookId" validate:"required,gt=0"`
	LibraryID int64 `json:"libraryId"`
}

type CreateInventoryRequest struct {
	BookID      int64 `json:"bookId" validate:"required,gt=0"`
	LibraryID   int64 `json:"libraryId" validate:"required,gt=0"`
	TotalCopies int   `json:"totalCopies" validate:"gte=0"`
	// AvailableCopies is accepted for compatibility and ignored: availability is derived.
	AvailableCopies int `json:"availableCopies"`
}

type PatchInventoryRequest struct {
	TotalCopies     *int `json:"totalCopies" validate:"omitempty,gte=0"`
	AvailableCopies *int `json:"availableCopies"`
}

type LoanFilter struct {
	Q      string
	Status string
}

type FineFilter struct {
	Q     string
	State string
}

type LibrarianProfile struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	LibraryID *int64 `json:"libraryId"`
}
