package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astemirdum/library-portal/mockapi/internal/errs"
	"github.com/Astemirdum/library-portal/mockapi/internal/model"
	"github.com/Astemirdum/library-portal/mockapi/internal/repository"
	"github.com/Astemirdum/library-portal/pkg/kvstore"
	"github.com/Astemirdum/library-portal/pkg/validate"
)

type Claims struct {
	ID    int64      `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || !validate.Password(req.Password) {
		return model.AuthResponse{}, errs.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return model.AuthResponse{}, errors.Wrap(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var user model.User
	err = s.repo.Update(ctx, func(q kvstore.Querier) error {
		users, err := repository.Users.Load(ctx, q)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Email == email {
				return errs.ErrIdentifierAlreadyExists
			}
		}
		// self-registration never grants staff roles
		user = model.User{
			ID:           repository.NextID(users),
			Email:        email,
			PasswordHash: string(hash),
			Role:         model.RoleUser,
			CreatedAt:    s.now().UTC(),
		}
		return repository.Users.Save(ctx, q, append(users, user))
	})
	if err != nil {
		return model.AuthResponse{}, err
	}
	s.log.Info("user registered", zap.Int64("id", user.ID))
	return s.issueToken(user)
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	var user *model.User
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		users, err := repository.Users.Load(ctx, q)
		if err != nil {
			return err
		}
		for i := range users {
			if users[i].Email == email {
				user = &users[i]
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return model.AuthResponse{}, err
	}
	if user == nil {
		return model.AuthResponse{}, errs.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.AuthResponse{}, errs.ErrInvalidCredentials
	}
	return s.issueToken(*user)
}

func (s *Service) issueToken(user model.User) (model.AuthResponse, error) {
	now := s.now()
	claims := &Claims{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.auth.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.auth.JWTSecret))
	if err != nil {
		return model.AuthResponse{}, errors.Wrap(err, "sign token")
	}
	return model.AuthResponse{Token: token}, nil
}

// ParseToken verifies the signature and expiry of a bearer token.
func (s *Service) ParseToken(token string) (model.Actor, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.auth.JWTSecret), nil
	})
	if err != nil {
		return model.Actor{}, errors.Wrap(errs.ErrUnauthorized, err.Error())
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return model.Actor{}, errors.Wrap(errs.ErrUnauthorized, "token is expired")
	}
	return model.Actor{UserID: claims.ID, Email: claims.Email, Role: claims.Role}, nil
}

// ForgotPassword answers the same way for unknown addresses. Without a mailer the
// reset token is handed back in the response.
func (s *Service) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) (model.ForgotPasswordResponse, error) {
	email := normalizeEmail(req.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	var resp model.ForgotPasswordResponse
	err := s.repo.Update(ctx, func(q kvstore.Querier) error {
		users, err := repository.Users.Load(ctx, q)
		if err != nil {
			return err
		}
		var userID int64
		for _, u := range users {
			if u.Email == email {
				userID = u.ID
				break
			}
		}
		if userID == 0 {
			return nil
		}
		tokens, err := repository.ResetTokens.Load(ctx, q)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		kept := tokens[:0]
		for _, t := range tokens {
			if !t.Used && t.ExpiresAt.After(now) && t.UserID != userID {
				kept = append(kept, t)
			}
		}
		rt := model.ResetToken{
			Token:     uuid.NewString(),
			UserID:    userID,
			ExpiresAt: now.Add(s.auth.ResetTTL),
		}
		resp.ResetToken = rt.Token
		return repository.ResetTokens.Save(ctx, q, append(kept, rt))
	})
	return resp, err
}

func (s *Service) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	if !validate.Password(req.NewPassword) {
		return errs.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.Update(ctx, func(q kvstore.Querier) error {
		tokens, err := repository.ResetTokens.Load(ctx, q)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		idx := -1
		for i, t := range tokens {
			if t.Token == req.Token && !t.Used && t.ExpiresAt.After(now) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return errs.ErrInvalidOrExpiredToken
		}
		users, err := repository.Users.Load(ctx, q)
		if err != nil {
			return err
		}
		u := repository.Find(users, tokens[idx].UserID)
		if u < 0 {
			return errs.ErrInvalidOrExpiredToken
		}
		users[u].PasswordHash = string(hash)
		tokens[idx].Used = true
		if err := repository.Users.Save(ctx, q, users); err != nil {
			return err
		}
		return repository.ResetTokens.Save(ctx, q, tokens)
	})
}

// Librarian returns the staff record of the acting user.
func (s *Service) Librarian(ctx context.Context, actor model.Actor) (model.LibrarianProfile, error) {
	var profile model.LibrarianProfile
	err := s.repo.View(ctx, func(q kvstore.Querier) error {
		librarians, err := repository.Librarians.Load(ctx, q)
		if err != nil {
			return err
		}
		for _, l := range librarians {
			if l.UserID == actor.UserID {
				profile = model.LibrarianProfile(l)
				return nil
			}
		}
		return errors.Wrap(errs.ErrNotFound, "librarian for user "+strconv.FormatInt(actor.UserID, 10))
	})
	return profile, err
}
