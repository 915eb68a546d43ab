// Package noteservice implements the note access contract: every read or
// mutation loads the stored record first, checks that the caller owns it and
// only then acts on it.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/docstore"
	"github.com/starford/scribe/internal/models"
)

// Collection is the document store collection holding notes.
const Collection = "notes"

// Event kinds published after successful mutations.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Publisher receives change notifications scoped to a note owner.
type Publisher interface {
	PublishNoteEvent(owner, kind, noteID string)
}

// Action names the operation being authorized.
type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

const (
	msgCreateRequired = "Title and content are required"
	msgUpdateRequired = "At least one of title or content is required"
	msgNotFound       = "Note not found"
	msgNoCaller       = "Authentication required"
)

// Patch carries the fields of an update. Empty strings are treated as
// omitted and keep the stored value.
type Patch struct {
	Title   string
	Content string
}

func (p Patch) empty() bool {
	return p.Title == "" && p.Content == ""
}

// Service coordinates note persistence and ownership checks.
type Service struct {
	store   docstore.Store
	events  Publisher
	metrics *Metrics
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sets the change-event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics records operation outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new note service.
func NewService(store docstore.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new note owned by caller.
func (s *Service) Create(ctx context.Context, caller, title, content string) (note *models.Note, err error) {
	defer func() { s.metrics.observe("create", err) }()

	if caller == "" {
		return nil, apperr.New(apperr.ErrUnauthenticated, msgNoCaller)
	}
	if title == "" || content == "" {
		return nil, apperr.New(apperr.ErrValidation, msgCreateRequired)
	}

	createdAt := s.now().UTC()
	id, err := s.store.Create(ctx, Collection, docstore.Fields{
		"title":      title,
		"content":    content,
		"user_id":    caller,
		"created_at": createdAt,
	})
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	s.publish(caller, EventCreated, id)
	return &models.Note{
		ID:        id,
		Title:     title,
		Content:   content,
		OwnerID:   caller,
		CreatedAt: createdAt,
	}, nil
}

// ListOwned returns every note owned by caller, most recent first.
func (s *Service) ListOwned(ctx context.Context, caller string) (notes []models.Note, err error) {
	defer func() { s.metrics.observe("list", err) }()

	if caller == "" {
		return nil, apperr.New(apperr.ErrUnauthenticated, msgNoCaller)
	}
	snaps, err := s.store.Query(ctx, Collection,
		docstore.Where("user_id", caller).OrderBy("created_at", docstore.Desc))
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	notes = make([]models.Note, 0, len(snaps))
	for i := range snaps {
		var n models.Note
		if err := snaps[i].DataTo(&n); err != nil {
			return nil, apperr.Upstream(err)
		}
		// The store filters already; this keeps the invariant local.
		if !n.OwnedBy(caller) {
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// GetByID returns the note if caller owns it.
func (s *Service) GetByID(ctx context.Context, caller, id string) (note *models.Note, err error) {
	defer func() { s.metrics.observe("get", err) }()
	return s.loadAuthorized(ctx, caller, id, ActionView)
}

// Update patches title and/or content of a note owned by caller.
func (s *Service) Update(ctx context.Context, caller, id string, p Patch) (note *models.Note, err error) {
	defer func() { s.metrics.observe("update", err) }()

	if caller == "" {
		return nil, apperr.New(apperr.ErrUnauthenticated, msgNoCaller)
	}
	if p.empty() {
		return nil, apperr.New(apperr.ErrValidation, msgUpdateRequired)
	}
	note, err = s.loadAuthorized(ctx, caller, id, ActionUpdate)
	if err != nil {
		return nil, err
	}

	updatedAt := s.now().UTC()
	patch := docstore.Fields{"updated_at": updatedAt}
	if p.Title != "" {
		patch["title"] = p.Title
		note.Title = p.Title
	}
	if p.Content != "" {
		patch["content"] = p.Content
		note.Content = p.Content
	}
	if err := s.store.Update(ctx, Collection, id, patch); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, msgNotFound, err)
		}
		return nil, apperr.Upstream(err)
	}
	note.UpdatedAt = &updatedAt
	s.publish(caller, EventUpdated, id)
	return note, nil
}

// Delete permanently removes a note owned by caller.
func (s *Service) Delete(ctx context.Context, caller, id string) (err error) {
	defer func() { s.metrics.observe("delete", err) }()

	if _, err := s.loadAuthorized(ctx, caller, id, ActionDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, Collection, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, msgNotFound, err)
		}
		return apperr.Upstream(err)
	}
	s.publish(caller, EventDeleted, id)
	return nil
}

// Export renders a note owned by caller as a Markdown document.
func (s *Service) Export(ctx context.Context, caller, id string) (exp *Export, err error) {
	defer func() { s.metrics.observe("export", err) }()

	note, err := s.loadAuthorized(ctx, caller, id, ActionView)
	if err != nil {
		return nil, err
	}
	out := RenderMarkdown(note.Title, note.Content)
	return &out, nil
}

// loadAuthorized fetches the persisted note and checks its owner against
// caller. Authorization is decided on the stored record only.
func (s *Service) loadAuthorized(ctx context.Context, caller, id string, action Action) (*models.Note, error) {
	if caller == "" {
		return nil, apperr.New(apperr.ErrUnauthenticated, msgNoCaller)
	}
	if id == "" {
		return nil, apperr.New(apperr.ErrNotFound, msgNotFound)
	}
	snap, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, msgNotFound, err)
		}
		return nil, apperr.Upstream(err)
	}
	var note models.Note
	if err := snap.DataTo(&note); err != nil {
		return nil, apperr.Upstream(err)
	}
	if !note.OwnedBy(caller) {
		return nil, apperr.New(apperr.ErrForbidden,
			fmt.Sprintf("Unauthorized: You can only %s your own notes", action))
	}
	return &note, nil
}

func (s *Service) publish(owner, kind, id string) {
	if s.events != nil {
		s.events.PublishNoteEvent(owner, kind, id)
	}
}
