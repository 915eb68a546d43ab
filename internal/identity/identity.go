// Package identity issues and verifies bearer tokens and manages user
// credentials.
package identity

import (
	"context"
	"time"
)

// Token uses carried in the token_use claim. Only ID tokens authenticate API
// requests; custom tokens are handed to trusted clients for exchange.
const (
	TokenUseID     = "id"
	TokenUseCustom = "custom"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// UserParams describes a new account.
type UserParams struct {
	Email       string
	Password    string
	DisplayName string
}

// Provider is the identity contract consumed by the account service and the
// HTTP middleware.
type Provider interface {
	// CreateUser registers credentials and returns the new subject identifier.
	CreateUser(ctx context.Context, p UserParams) (string, error)
	// DeleteUser removes the credentials of uid.
	DeleteUser(ctx context.Context, uid string) error
	// IssueToken mints a custom token for uid.
	IssueToken(ctx context.Context, uid string) (string, error)
	// SignIn checks credentials and returns an ID token and its subject.
	SignIn(ctx context.Context, email, password string) (token string, uid string, err error)
	// VerifyToken validates an ID token and returns its subject identifier.
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Config holds token signing parameters.
type Config struct {
	Secret         string
	Issuer         string
	IDTokenTTL     time.Duration
	CustomTokenTTL time.Duration
}
