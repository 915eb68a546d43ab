package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
)

// CredentialsCollection holds one document per account, keyed by the
// normalized email address.
const CredentialsCollection = "credentials"

const (
	msgInvalidToken       = "Invalid or expired token"
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "The email address is already in use by another account."
)

// Claims is the JWT payload issued by Local.
type Claims struct {
	TokenUse string `json:"token_use"`
	Email    string `json:"email,omitempty"`
	jwtlib.RegisteredClaims
}

type credential struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Local is a Provider backed by the document store and HS256 JWTs.
type Local struct {
	store docstore.Store
	cfg   Config
	now   func() time.Time
	cost  int
}

var _ Provider = (*Local)(nil)

// Option customises a Local provider.
type Option func(*Local)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(l *Local) { l.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(l *Local) { l.cost = cost }
}

// NewLocal creates a Local provider.
func NewLocal(store docstore.Store, cfg Config, opts ...Option) *Local {
	if cfg.IDTokenTTL <= 0 {
		cfg.IDTokenTTL = time.Hour
	}
	if cfg.CustomTokenTTL <= 0 {
		cfg.CustomTokenTTL = time.Hour
	}
	l := &Local{store: store, cfg: cfg, now: time.Now, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NormalizeEmail returns the form of email used as the credential key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser hashes the password and stores the credential document.
func (l *Local) CreateUser(ctx context.Context, p UserParams) (string, error) {
	email := NormalizeEmail(p.Email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return "", apperr.New(apperr.ErrValidation, "The email address is improperly formatted.")
	}
	if len(p.Password) < MinPasswordLength {
		return "", apperr.New(apperr.ErrValidation,
			fmt.Sprintf("Password should be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), l.cost)
	if err != nil {
		return "", fmt.Errorf("identity: hash password: %w", err)
	}
	uid := uuid.NewString()
	err = l.store.CreateWithID(ctx, CredentialsCollection, email, docstore.Fields{
		"uid":           uid,
		"email":         email,
		"password_hash": string(hash),
		"display_name":  p.DisplayName,
		"created_at":    l.now(),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return "", apperr.Wrap(apperr.ErrAlreadyExists, msgEmailTaken, err)
		}
		return "", err
	}
	return uid, nil
}

// DeleteUser removes the credentials of uid, freeing its email address.
func (l *Local) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return apperr.New(apperr.ErrValidation, "UID is required")
	}
	snaps, err := l.store.Query(ctx, CredentialsCollection, docstore.Where("uid", uid))
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("identity: delete user %s: %w", uid, apperr.ErrNotFound)
	}
	for _, snap := range snaps {
		if err := l.store.Delete(ctx, CredentialsCollection, snap.ID); err != nil {
			return err
		}
	}
	return nil
}

// IssueToken mints a custom token for uid.
func (l *Local) IssueToken(_ context.Context, uid string) (string, error) {
	if uid == "" {
		return "", apperr.New(apperr.ErrValidation, "UID is required")
	}
	return l.sign(uid, "", TokenUseCustom, l.cfg.CustomTokenTTL)
}

// SignIn verifies email and password and issues an ID token.
func (l *Local) SignIn(ctx context.Context, email, password string) (string, string, error) {
	snap, err := l.store.Get(ctx, CredentialsCollection, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", "", apperr.New(apperr.ErrUnauthenticated, msgInvalidCredentials)
		}
		return "", "", err
	}
	var cred credential
	if err := snap.DataTo(&cred); err != nil {
		return "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", "", apperr.Wrap(apperr.ErrUnauthenticated, msgInvalidCredentials, err)
	}
	token, err := l.sign(cred.UID, cred.Email, TokenUseID, l.cfg.IDTokenTTL)
	if err != nil {
		return "", "", err
	}
	return token, cred.UID, nil
}

// VerifyToken validates signature, issuer, expiry and token use.
func (l *Local) VerifyToken(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.New(apperr.ErrUnauthenticated, msgInvalidToken)
	}
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(l.cfg.Secret), nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithIssuer(l.cfg.Issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(l.now),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUnauthenticated, msgInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenUse != TokenUseID || claims.Subject == "" {
		return "", apperr.New(apperr.ErrUnauthenticated, msgInvalidToken)
	}
	return claims.Subject, nil
}

func (l *Local) sign(uid, email, use string, ttl time.Duration) (string, error) {
	now := l.now()
	claims := Claims{
		TokenUse: use,
		Email:    email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    l.cfg.Issuer,
			Subject:   uid,
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(l.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}
