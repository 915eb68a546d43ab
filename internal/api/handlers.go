package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/account"
	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/checksum"
	"github.com/starford/scribe/internal/noteservice"
	"github.com/starford/scribe/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	accounts *account.Service
	notes    *noteservice.Service
	events   *sse.Broker
}

// NewHandler creates a new Handler.
func NewHandler(accounts *account.Service, notes *noteservice.Service, events *sse.Broker) *Handler {
	return &Handler{accounts: accounts, notes: notes, events: events}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the caller's notes, most recent first
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Failure		401	{object}	FailureResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListOwned(r.Context(), SubjectFrom(r.Context()))
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Success: true, Notes: notes, Count: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteResponse
//	@Failure		401	{object}	FailureResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.GetByID(r.Context(), SubjectFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		// Reading someone else's note is rejected like a bad credential.
		if errors.Is(err, apperr.ErrForbidden) {
			writeJSON(w, http.StatusUnauthorized, failure(apperr.Message(err)))
			return
		}
		writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Success: true, Note: note})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		200		{object}	FailureResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	decodeBody(w, r, &req)

	note, err := h.notes.Create(r.Context(), SubjectFrom(r.Context()), req.Title, req.Content)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, NoteResponse{
		Success: true,
		Message: "Note created successfully",
		Note:    note,
	})
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update title and/or content of a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	MessageResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	decodeBody(w, r, &req)

	_, err := h.notes.Update(r.Context(), SubjectFrom(r.Context()), chi.URLParam(r, "id"), noteservice.Patch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Note updated successfully"})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	MessageResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), SubjectFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Note deleted successfully"})
}

// ExportNote handles GET /api/notes/{id}/export.
//
//	@Summary		Download a note as Markdown
//	@Tags			notes
//	@Produce		text/markdown
//	@Param			id	path	string	true	"Note id"
//	@Success		200	{string}	string	"Markdown document"
//	@Success		304	"Unchanged since the ETag in If-None-Match"
//	@Security		BearerAuth
//	@Router			/notes/{id}/export [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	exp, err := h.notes.Export(r.Context(), SubjectFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "export note", err)
		return
	}
	etag := checksum.ETag(exp.Body)
	w.Header().Set("ETag", etag)
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, exp.Body)
}

// Events handles GET /api/events.
//
//	@Summary		Stream the caller's note change events
//	@Tags			events
//	@Produce		text/event-stream
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	h.events.Serve(w, r, SubjectFrom(r.Context()))
}
