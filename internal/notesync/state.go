package notesync

import (
	"github.com/starford/scribe/internal/models"
)

// State is the client's view of the caller's notes.
type State struct {
	// Notes are ordered most recent first.
	Notes    []models.Note
	ActiveID string
	// Unsaved holds ids of notes with local edits not yet confirmed by the
	// server.
	Unsaved map[string]bool
	// Saving holds ids of notes with an autosave request in flight.
	Saving map[string]bool
	// Err is the last user-visible failure, cleared by the next success.
	Err string
	// Version increases by one with every applied action.
	Version uint64
}

// Active returns the selected note.
func (s State) Active() (models.Note, bool) {
	if s.ActiveID == "" {
		return models.Note{}, false
	}
	return s.find(s.ActiveID)
}

func (s State) find(id string) (models.Note, bool) {
	for _, n := range s.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

func (s State) clone() State {
	out := State{ActiveID: s.ActiveID, Err: s.Err, Version: s.Version}
	out.Notes = append([]models.Note(nil), s.Notes...)
	out.Unsaved = cloneSet(s.Unsaved)
	out.Saving = cloneSet(s.Saving)
	return out
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = v
		}
	}
	return out
}

type action interface{ isAction() }

type (
	loaded struct{ notes []models.Note }
	selected struct{ id string }
	edited struct {
		id, title, content string
	}
	saveStarted   struct{ id string }
	saveSucceeded struct {
		id, title, content string
	}
	saveFailed struct{ id, message string }
	created    struct{ note models.Note }
	deleted    struct{ id string }
	failed     struct{ message string }
)

func (loaded) isAction()        {}
func (selected) isAction()      {}
func (edited) isAction()        {}
func (saveStarted) isAction()   {}
func (saveSucceeded) isAction() {}
func (saveFailed) isAction()    {}
func (created) isAction()       {}
func (deleted) isAction()       {}
func (failed) isAction()        {}

// reduce returns the state that results from applying a to s. s is not
// modified.
func reduce(s State, a action) State {
	next := s.clone()
	next.Version++
	switch a := a.(type) {
	case loaded:
		next.Notes = append([]models.Note(nil), a.notes...)
		next.Unsaved = map[string]bool{}
		next.Saving = map[string]bool{}
		next.ActiveID = ""
		if len(next.Notes) > 0 {
			next.ActiveID = next.Notes[0].ID
		}
		next.Err = ""

	case selected:
		if _, ok := next.find(a.id); ok {
			next.ActiveID = a.id
		}

	case edited:
		for i := range next.Notes {
			if next.Notes[i].ID == a.id {
				next.Notes[i].Title = a.title
				next.Notes[i].Content = a.content
				next.Unsaved[a.id] = true
				break
			}
		}

	case saveStarted:
		next.Saving[a.id] = true

	case saveSucceeded:
		delete(next.Saving, a.id)
		// Edits made while the request was in flight stay unsaved. An empty
		// field is not sent, so the server still holds the old value and the
		// note stays unsaved too.
		if n, ok := next.find(a.id); ok && n.Title == a.title && n.Content == a.content &&
			a.title != "" && a.content != "" {
			delete(next.Unsaved, a.id)
		}
		next.Err = ""

	case saveFailed:
		delete(next.Saving, a.id)
		next.Err = a.message

	case created:
		next.Notes = append([]models.Note{a.note}, next.Notes...)
		next.ActiveID = a.note.ID
		next.Err = ""

	case deleted:
		remaining := next.Notes[:0]
		for _, n := range next.Notes {
			if n.ID != a.id {
				remaining = append(remaining, n)
			}
		}
		next.Notes = remaining
		delete(next.Unsaved, a.id)
		delete(next.Saving, a.id)
		if next.ActiveID == a.id {
			next.ActiveID = ""
			if len(next.Notes) > 0 {
				next.ActiveID = next.Notes[0].ID
			}
		}
		next.Err = ""

	case failed:
		next.Err = a.message
	}
	return next
}
