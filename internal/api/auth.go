package api

import (
	"net/http"

	"github.com/starford/scribe/internal/account"
	"github.com/starford/scribe/internal/apperr"
)

// Register handles POST /api/auth/register.
//
//	@Summary		Register a new account
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterRequest	true	"Account details"
//	@Success		201		{object}	RegisterResponse
//	@Failure		200		{object}	FailureResponse
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	decodeBody(w, r, &req)

	uid, err := h.accounts.Register(r.Context(), account.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterResponse{
		Success: true,
		Message: "User registered successfully",
		UserID:  uid,
	})
}

// Login handles POST /api/auth/login.
//
//	@Summary		Issue a custom token for a uid
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Subject"
//	@Success		200		{object}	TokenResponse
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	decodeBody(w, r, &req)

	token, err := h.accounts.Login(r.Context(), req.UID)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// SignIn handles POST /api/auth/signin.
//
//	@Summary		Exchange email and password for an ID token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SignInRequest	true	"Credentials"
//	@Success		200		{object}	SignInResponse
//	@Failure		401		{object}	FailureResponse
//	@Router			/auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	decodeBody(w, r, &req)

	token, uid, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, "signin", err)
		return
	}
	writeJSON(w, http.StatusOK, SignInResponse{Success: true, Token: token, UserID: uid})
}

// Verify handles POST /api/auth/verify.
//
//	@Summary		Verify an ID token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		VerifyRequest	true	"Token"
//	@Success		200		{object}	VerifyResponse
//	@Router			/auth/verify [post]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	decodeBody(w, r, &req)

	uid, err := h.accounts.Verify(r.Context(), req.IDToken)
	if err != nil {
		// Verify reports bad tokens in the body; it is not itself authenticated.
		writeJSON(w, http.StatusOK, failure(apperr.Message(err)))
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Success: true, UserID: uid})
}

// Profile handles GET /api/auth/profile.
//
//	@Summary		Get the caller's profile
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	ProfileResponse
//	@Failure		401	{object}	FailureResponse
//	@Security		BearerAuth
//	@Router			/auth/profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.Profile(r.Context(), SubjectFrom(r.Context()))
	if err != nil {
		writeError(w, r, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Success: true, User: u})
}
