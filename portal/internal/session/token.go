package session

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleReader    Role = "READER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// Claims is the decoded, unverified payload of a bearer token.
type Claims map[string]any

type User struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Identifier string `json:"identifier"`
}

const tokenSegments = 3

// DecodeToken base64url-decodes the payload segment of a JWS compact token.
// The signature is not checked: the backend re-verifies the token on every call.
func DecodeToken(token string) (Claims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != tokenSegments {
		return nil, false
	}
	payload, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var claims Claims
	if err := dec.Decode(&claims); err != nil || claims == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return claims, true
}

func (c Claims) text(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Exp values at or beyond this many seconds do not fit an int64 conversion.
const maxExpSeconds = 1 << 62

// Expiry reports the exp claim. ok is false when exp is present but not a number.
// A missing or zero exp yields the zero time: the token never expires.
func (c Claims) Expiry() (exp time.Time, ok bool) {
	raw, present := c["exp"]
	if !present || raw == nil {
		return time.Time{}, true
	}
	n, isNum := raw.(json.Number)
	if !isNum {
		return time.Time{}, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	if f == 0 || f >= maxExpSeconds {
		return time.Time{}, true
	}
	if f <= -maxExpSeconds {
		return time.Unix(-maxExpSeconds, 0), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))), true
}

// Expired reports whether the token is past its exp at now. Expiry is inclusive.
func (c Claims) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	if !ok {
		return true
	}
	return !exp.IsZero() && !now.Before(exp)
}

// MapRole narrows a backend role to the roles the portal knows. Only LIBRARIAN keeps
// staff rights; USER, ADMIN and anything unknown become READER.
func MapRole(backend string) Role {
	if backend == string(RoleLibrarian) {
		return RoleLibrarian
	}
	return RoleReader
}

func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func DeriveUser(token string) (User, bool) {
	claims, ok := DecodeToken(token)
	if !ok {
		return User{}, false
	}
	return claims.User()
}

func (c Claims) User() (User, bool) {
	identifier := NormalizeIdentifier(c.text("email"))
	if identifier == "" {
		identifier = NormalizeIdentifier(c.text("sub"))
	}
	if identifier == "" {
		return User{}, false
	}

	var id string
	switch v := c["id"].(type) {
	case string:
		id = v
	case json.Number:
		id = v.String()
	}
	if id == "" {
		id = "email:" + identifier
	}

	return User{
		ID:         id,
		Role:       MapRole(c.text("role")),
		Identifier: identifier,
	}, true
}
