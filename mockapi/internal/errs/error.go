package errs

import (
	"github.com/pkg/errors"
)

// The messages are the codes clients switch on.
var (
	ErrNotFound                = errors.New("NOT_FOUND")
	ErrForbidden               = errors.New("FORBIDDEN")
	ErrUnauthorized            = errors.New("UNAUTHORIZED")
	ErrInvalidCredentials      = errors.New("INVALID_CREDENTIALS")
	ErrIdentifierAlreadyExists = errors.New("IDENTIFIER_ALREADY_EXISTS")
	ErrInvalidOrExpiredToken   = errors.New("INVALID_OR_EXPIRED_TOKEN")
	ErrAlreadyBooked           = errors.New("ALREADY_BOOKED")
	ErrNotAvailable            = errors.New("NOT_AVAILABLE")
	ErrBookingNotActive        = errors.New("BOOKING_NOT_ACTIVE")
	ErrAlreadyIssued           = errors.New("ALREADY_ISSUED")
	ErrIssuanceNotOpen         = errors.New("ISSUANCE_NOT_OPEN")
	ErrRenewLimit              = errors.New("RENEW_LIMIT")
	ErrInvalidArgument         = errors.New("VALIDATION_FAILED")
)
