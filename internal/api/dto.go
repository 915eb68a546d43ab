package api

import (
	"github.com/starford/scribe/internal/models"
)

// RegisterRequest is the request body for registering an account.
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com" validate:"required"`
	Password string `json:"password" example:"secret1" validate:"required"`
	Name     string `json:"name" example:"Alice" validate:"required"`
}

// LoginRequest is the request body for issuing a custom token.
type LoginRequest struct {
	UID string `json:"uid" example:"4f1c2b1e-0d7a-4a77-9d8c-1f5b2e3c4d5e" validate:"required"`
}

// SignInRequest is the request body for password sign-in.
type SignInRequest struct {
	Email    string `json:"email" example:"alice@example.com" validate:"required"`
	Password string `json:"password" example:"secret1" validate:"required"`
}

// VerifyRequest is the request body for verifying an ID token.
type VerifyRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Groceries" validate:"required"`
	Content string `json:"content" example:"<p>milk</p>" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note. Omitted or
// empty fields keep their stored value.
type UpdateNoteRequest struct {
	Title   string `json:"title,omitempty" example:"Groceries"`
	Content string `json:"content,omitempty" example:"<p>milk, eggs</p>"`
}

// FailureResponse is returned for every failed operation.
type FailureResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"Note not found"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Note deleted successfully"`
}

// RegisterResponse is returned after registration.
type RegisterResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"User registered successfully"`
	UserID  string `json:"userId"`
}

// TokenResponse carries a custom token.
type TokenResponse struct {
	Success bool   `json:"success" example:"true"`
	Token   string `json:"token"`
}

// SignInResponse carries an ID token and its subject.
type SignInResponse struct {
	Success bool   `json:"success" example:"true"`
	Token   string `json:"token"`
	UserID  string `json:"userId"`
}

// VerifyResponse carries the subject of a verified token.
type VerifyResponse struct {
	Success bool   `json:"success" example:"true"`
	UserID  string `json:"userId"`
}

// ProfileResponse carries the caller's profile.
type ProfileResponse struct {
	Success bool         `json:"success" example:"true"`
	User    *models.User `json:"user"`
}

// NoteResponse carries a single note.
type NoteResponse struct {
	Success bool         `json:"success" example:"true"`
	Message string       `json:"message,omitempty" example:"Note created successfully"`
	Note    *models.Note `json:"note"`
}

// NoteListResponse carries the caller's notes.
type NoteListResponse struct {
	Success bool          `json:"success" example:"true"`
	Notes   []models.Note `json:"notes"`
	Count   int           `json:"count" example:"2"`
}
