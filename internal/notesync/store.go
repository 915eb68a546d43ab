// Package notesync keeps a local view of the caller's notes in sync with the
// server. Edits apply locally at once and are saved after a quiet period.
package notesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/starford/scribe/internal/client"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/noteservice"
)

// DefaultSaveDelay is the quiet period before an edited note is saved.
const DefaultSaveDelay = time.Second

// ErrNoActiveNote is returned by operations that need a selected note.
var ErrNoActiveNote = errors.New("notesync: no active note")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("notesync: store closed")

// API is the subset of the HTTP client the store depends on.
type API interface {
	ListNotes(ctx context.Context) ([]models.Note, error)
	CreateNote(ctx context.Context, title, content string) (models.Note, error)
	UpdateNote(ctx context.Context, id, title, content string) error
	DeleteNote(ctx context.Context, id string) error
}

var _ API = (*client.Client)(nil)

// Store is the single writer of State. Every change goes through reduce.
type Store struct {
	api   API
	delay time.Duration

	mu        sync.Mutex
	deliverMu sync.Mutex
	state     State
	timers    map[string]*time.Timer
	gen       map[string]uint64
	listeners []func(State)
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customises a Store.
type Option func(*Store)

// WithSaveDelay overrides the autosave quiet period.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.delay = d
		}
	}
}

// New creates a Store backed by api.
func New(api API, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		api:    api,
		delay:  DefaultSaveDelay,
		state:  State{Unsaved: map[string]bool{}, Saving: map[string]bool{}},
		timers: make(map[string]*time.Timer),
		gen:    make(map[string]uint64),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to receive every new state, in the order the states
// were produced. fn must not block for long and must not call methods that
// change the store; Snapshot and Err are safe.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Err returns the last user-visible failure message.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Err
}

// dispatch applies a and delivers the result. deliverMu keeps reduce and
// delivery in one order, so listeners never see an older state last.
func (s *Store) dispatch(a action) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.state = reduce(s.state, a)
	snap := s.state.clone()
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Load fetches all notes and selects the most recent one.
func (s *Store) Load(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	notes, err := s.api.ListNotes(ctx)
	if err != nil {
		s.dispatch(failed{message: client.Message(err)})
		return err
	}
	s.cancelAll()
	s.dispatch(loaded{notes: notes})
	return nil
}

// Select makes id the active note and drops the pending autosave of the
// previously active note. Selecting an unknown or already active note is a
// no-op.
func (s *Store) Select(id string) {
	s.mu.Lock()
	prev := s.state.ActiveID
	_, known := s.state.find(id)
	s.mu.Unlock()
	if !known || id == prev {
		return
	}
	if prev != "" {
		s.cancelTask(prev)
	}
	s.dispatch(selected{id: id})
}

// Edit replaces the active note's title and content locally and
// (re)schedules its autosave.
func (s *Store) Edit(title, content string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	id := s.state.ActiveID
	s.mu.Unlock()
	if id == "" {
		return ErrNoActiveNote
	}

	s.dispatch(edited{id: id, title: title, content: content})
	s.schedule(id)
	return nil
}

// Create stores a new note on the server and selects it.
func (s *Store) Create(ctx context.Context, title, content string) (models.Note, error) {
	if s.isClosed() {
		return models.Note{}, ErrClosed
	}
	note, err := s.api.CreateNote(ctx, title, content)
	if err != nil {
		s.dispatch(failed{message: client.Message(err)})
		return models.Note{}, err
	}
	s.dispatch(created{note: note})
	return note, nil
}

// Delete removes a note on the server, then locally. When the active note
// is deleted the next most recent note becomes active.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.cancelTask(id)
	if err := s.api.DeleteNote(ctx, id); err != nil {
		s.dispatch(failed{message: client.Message(err)})
		return err
	}
	s.dispatch(deleted{id: id})
	return nil
}

// Export renders the active note as Markdown without contacting the server.
func (s *Store) Export() (noteservice.Export, error) {
	s.mu.Lock()
	note, ok := s.state.Active()
	s.mu.Unlock()
	if !ok {
		return noteservice.Export{}, ErrNoActiveNote
	}
	return noteservice.RenderMarkdown(note.Title, note.Content), nil
}

// Close cancels every pending autosave and waits for in-flight saves.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		s.gen[id]++
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.gen[id]++
	g := s.gen[id]
	s.timers[id] = time.AfterFunc(s.delay, func() { s.autosave(id, g) })
}

func (s *Store) cancelTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.gen[id]++
}

func (s *Store) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		s.gen[id]++
	}
}

// autosave saves the note's content as it is when the task fires. A task
// whose generation is stale was cancelled or superseded.
func (s *Store) autosave(id string, g uint64) {
	s.mu.Lock()
	if s.closed || s.gen[id] != g {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	_ = s.save(s.ctx, id)
}

// Flush saves every note with unsaved edits now instead of waiting for its
// autosave task. It returns the first failure.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var ids []string
	for id := range s.state.Unsaved {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var first error
	for _, id := range ids {
		s.cancelTask(id)
		if err := s.save(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Store) save(ctx context.Context, id string) error {
	s.mu.Lock()
	note, ok := s.state.find(id)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	s.dispatch(saveStarted{id: id})
	if err := s.api.UpdateNote(ctx, id, note.Title, note.Content); err != nil {
		s.dispatch(saveFailed{id: id, message: client.Message(err)})
		return err
	}
	s.dispatch(saveSucceeded{id: id, title: note.Title, content: note.Content})
	return nil
}
