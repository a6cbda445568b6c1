package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/internal/users"
	"github.com/mercavia/tienda-backend/pkg/db"
	"github.com/mercavia/tienda-backend/pkg/db/models"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
	"github.com/mercavia/tienda-backend/pkg/security"
)

const usersEmailIndex = "idx_users_email"

// Register opens a customer account and immediately starts a session, so a
// guest keeps their cart through sign-up exactly like through login.
func (s *service) Register(ctx context.Context, req RegisterRequest, guestSessionID string) (*SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
	})
	if err != nil {
		// Two sign-ups racing on the same address resolve on the email index.
		if db.IsUniqueViolation(err, usersEmailIndex) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create user")
	}

	// Every account carries a profile from day one; the fields stay blank
	// until the customer fills them in.
	if _, err := s.users.UpsertProfile(ctx, &models.UserProfile{
		UserID:  user.ID,
		Country: s.shopCfg.DefaultCountry,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create profile")
	}

	return s.openSession(ctx, user, time.Now().UTC(), guestSessionID)
}
