// Package account implements registration, token issuance and profile
// lookup on top of an identity provider and the document store.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/identity"
	"github.com/starford/scribe/internal/models"
)

// UsersCollection holds one public profile per registered account.
const UsersCollection = "users"

const (
	msgRegisterRequired = "Email, password, and name are required"
	msgUIDRequired      = "UID is required"
	msgSignInRequired   = "Email and password are required"
	msgTokenRequired    = "ID token is required"
	msgInvalidToken     = "Invalid token"
	msgUserNotFound     = "User not found"
)

// Service handles account operations.
type Service struct {
	idp   identity.Provider
	store docstore.Store
	now   func() time.Time
}

// NewService creates a new account service.
func NewService(idp identity.Provider, store docstore.Store) *Service {
	return &Service{idp: idp, store: store, now: time.Now}
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Validate implements validation.Validatable.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Name, validation.Required),
	)
}

// Register creates credentials and the public profile, returning the new uid.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", apperr.Wrap(apperr.ErrValidation, msgRegisterRequired, err)
	}

	uid, err := s.idp.CreateUser(ctx, identity.UserParams{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.Name,
	})
	if err != nil {
		return "", apperr.Upstream(err)
	}

	err = s.store.CreateWithID(ctx, UsersCollection, uid, docstore.Fields{
		"id":         uid,
		"name":       in.Name,
		"email":      identity.NormalizeEmail(in.Email),
		"created_at": s.now().UTC(),
	})
	if err != nil {
		slog.Error("register: write profile", slog.String("uid", uid), slog.String("error", err.Error()))
		// Without a profile the account is unusable; free the email so the
		// registration can be retried.
		if delErr := s.idp.DeleteUser(ctx, uid); delErr != nil {
			slog.Error("register: remove credentials", slog.String("uid", uid), slog.String("error", delErr.Error()))
		}
		return "", apperr.Upstream(err)
	}
	return uid, nil
}

// Login issues a custom token for an existing uid.
func (s *Service) Login(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", apperr.New(apperr.ErrValidation, msgUIDRequired)
	}
	if _, err := s.Profile(ctx, uid); err != nil {
		return "", err
	}
	token, err := s.idp.IssueToken(ctx, uid)
	if err != nil {
		return "", apperr.Upstream(err)
	}
	return token, nil
}

// SignIn exchanges email and password for an ID token.
func (s *Service) SignIn(ctx context.Context, email, password string) (token, uid string, err error) {
	if email == "" || password == "" {
		return "", "", apperr.New(apperr.ErrValidation, msgSignInRequired)
	}
	token, uid, err = s.idp.SignIn(ctx, email, password)
	if err != nil {
		return "", "", apperr.Upstream(err)
	}
	return token, uid, nil
}

// Verify checks an ID token and returns its subject.
func (s *Service) Verify(ctx context.Context, idToken string) (string, error) {
	if idToken == "" {
		return "", apperr.New(apperr.ErrValidation, msgTokenRequired)
	}
	uid, err := s.idp.VerifyToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthenticated) {
			return "", apperr.Wrap(apperr.ErrUnauthenticated, msgInvalidToken, err)
		}
		return "", apperr.Upstream(err)
	}
	return uid, nil
}

// Profile returns the stored profile of uid.
func (s *Service) Profile(ctx context.Context, uid string) (*models.User, error) {
	snap, err := s.store.Get(ctx, UsersCollection, uid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, msgUserNotFound, err)
		}
		return nil, apperr.Upstream(err)
	}
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, apperr.Upstream(err)
	}
	return &u, nil
}
