package notesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/starford/scribe/internal/client"
	"github.com/starford/scribe/internal/models"
)

type update struct {
	id, title, content string
}

type fakeAPI struct {
	mu      sync.Mutex
	notes   []models.Note
	updates []update
	nextID  int

	// updateGate, when set, is received from before each update completes.
	updateGate chan struct{}
	updateErr  error
	deleteErr  error
}

func (f *fakeAPI) ListNotes(context.Context) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Note(nil), f.notes...), nil
}

func (f *fakeAPI) CreateNote(_ context.Context, title, content string) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n := models.Note{ID: fmt.Sprintf("new-%d", f.nextID), Title: title, Content: content, OwnerID: "alice"}
	f.notes = append([]models.Note{n}, f.notes...)
	return n, nil
}

func (f *fakeAPI) UpdateNote(_ context.Context, id, title, content string) error {
	if f.updateGate != nil {
		<-f.updateGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update{id, title, content})
	return f.updateErr
}

func (f *fakeAPI) DeleteNote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, n := range f.notes {
		if n.ID == id {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) recordedUpdates() []update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]update(nil), f.updates...)
}

func seeded() *fakeAPI {
	return &fakeAPI{notes: []models.Note{
		{ID: "n3", Title: "Third", Content: "c3", OwnerID: "alice"},
		{ID: "n2", Title: "Second", Content: "c2", OwnerID: "alice"},
		{ID: "n1", Title: "First", Content: "c1", OwnerID: "alice"},
	}}
}

const testDelay = 30 * time.Millisecond

func newStore(t *testing.T, api API) *Store {
	t.Helper()
	s := New(api, WithSaveDelay(testDelay))
	t.Cleanup(s.Close)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadSelectsMostRecent(t *testing.T) {
	s := newStore(t, seeded())
	st := s.Snapshot()
	if st.ActiveID != "n3" || len(st.Notes) != 3 {
		t.Errorf("state = %+v", st)
	}

	empty := New(&fakeAPI{})
	defer empty.Close()
	if err := empty.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if empty.Snapshot().ActiveID != "" {
		t.Error("empty list should leave no selection")
	}
}

func TestEditIsOptimisticAndDebounced(t *testing.T) {
	api := seeded()
	s := newStore(t, api)

	for i := 1; i <= 5; i++ {
		if err := s.Edit("Third", fmt.Sprintf("draft %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	st := s.Snapshot()
	active, _ := st.Active()
	if active.Content != "draft 5" || !st.Unsaved["n3"] {
		t.Fatalf("local state not updated: %+v", st)
	}
	if len(api.recordedUpdates()) != 0 {
		t.Fatal("saved before quiet period elapsed")
	}

	waitFor(t, func() bool { return len(api.recordedUpdates()) == 1 })
	time.Sleep(2 * testDelay)
	ups := api.recordedUpdates()
	if len(ups) != 1 || ups[0] != (update{"n3", "Third", "draft 5"}) {
		t.Fatalf("updates = %+v", ups)
	}
	waitFor(t, func() bool { return !s.Snapshot().Unsaved["n3"] })
}

func TestEditDuringInFlightSaveIsNotLost(t *testing.T) {
	api := seeded()
	api.updateGate = make(chan struct{})
	s := newStore(t, api)

	if err := s.Edit("Third", "v1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Snapshot().Saving["n3"] })

	// The first save is blocked; edit again.
	if err := s.Edit("Third", "v2"); err != nil {
		t.Fatal(err)
	}
	api.updateGate <- struct{}{}

	waitFor(t, func() bool { return len(api.recordedUpdates()) == 1 })
	if !s.Snapshot().Unsaved["n3"] {
		t.Error("v2 should still be unsaved after v1 is acknowledged")
	}

	api.updateGate <- struct{}{}
	waitFor(t, func() bool { return len(api.recordedUpdates()) == 2 })
	ups := api.recordedUpdates()
	if ups[0].content != "v1" || ups[1].content != "v2" {
		t.Errorf("updates = %+v", ups)
	}
	waitFor(t, func() bool { return !s.Snapshot().Unsaved["n3"] })
}

func TestSaveFailureKeepsLocalEdits(t *testing.T) {
	api := seeded()
	api.updateErr = client.Failure{Message: "At least one of title or content is required"}
	s := newStore(t, api)

	var mu sync.Mutex
	var seen []string
	s.OnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st.Err)
	})

	if err := s.Edit("Third", "local"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return s.Err() != "" })

	if s.Err() != "At least one of title or content is required" {
		t.Errorf("err = %q", s.Err())
	}
	st := s.Snapshot()
	active, _ := st.Active()
	if active.Content != "local" || !st.Unsaved["n3"] {
		t.Errorf("local edit lost: %+v", st)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 || seen[len(seen)-1] != s.Err() {
		t.Errorf("listener did not observe error: %v", seen)
	}
}

func TestSelectCancelsPendingSave(t *testing.T) {
	api := seeded()
	s := newStore(t, api)

	if err := s.Edit("Third", "abandoned"); err != nil {
		t.Fatal(err)
	}
	s.Select("n1")
	time.Sleep(3 * testDelay)

	if ups := api.recordedUpdates(); len(ups) != 0 {
		t.Errorf("pending save should be cancelled, got %+v", ups)
	}
	if s.Snapshot().ActiveID != "n1" {
		t.Errorf("active = %q", s.Snapshot().ActiveID)
	}

	// Selecting an unknown id keeps the current selection.
	s.Select("ghost")
	if s.Snapshot().ActiveID != "n1" {
		t.Errorf("unknown select changed active to %q", s.Snapshot().ActiveID)
	}
}

func TestCreateSelectsNewNote(t *testing.T) {
	s := newStore(t, seeded())
	n, err := s.Create(context.Background(), "Fresh", "body")
	if err != nil {
		t.Fatal(err)
	}
	st := s.Snapshot()
	if st.ActiveID != n.ID || st.Notes[0].ID != n.ID || len(st.Notes) != 4 {
		t.Errorf("state = %+v", st)
	}
}

func TestDeleteActiveSelectsNext(t *testing.T) {
	s := newStore(t, seeded())
	if err := s.Delete(context.Background(), "n3"); err != nil {
		t.Fatal(err)
	}
	st := s.Snapshot()
	if st.ActiveID != "n2" || len(st.Notes) != 2 {
		t.Errorf("state = %+v", st)
	}

	if err := s.Delete(context.Background(), "n1"); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().ActiveID != "n2" {
		t.Error("deleting an inactive note changed the selection")
	}
	if err := s.Delete(context.Background(), "n2"); err != nil {
		t.Fatal(err)
	}
	if st := s.Snapshot(); st.ActiveID != "" || len(st.Notes) != 0 {
		t.Errorf("state after deleting all = %+v", st)
	}
}

func TestDeleteFailureKeepsNote(t *testing.T) {
	api := seeded()
	api.deleteErr = client.Failure{Message: "Unauthorized: You can only delete your own notes"}
	s := newStore(t, api)

	err := s.Delete(context.Background(), "n3")
	if err == nil {
		t.Fatal("expected error")
	}
	st := s.Snapshot()
	if len(st.Notes) != 3 || st.ActiveID != "n3" {
		t.Errorf("note removed despite failure: %+v", st)
	}
	if st.Err != "Unauthorized: You can only delete your own notes" {
		t.Errorf("err = %q", st.Err)
	}
}

func TestCloseCancelsAllTasks(t *testing.T) {
	api := seeded()
	s := New(api, WithSaveDelay(testDelay))
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	_ = s.Edit("Third", "x")
	s.Select("n2")
	_ = s.Edit("Second", "y")
	s.Close()
	time.Sleep(3 * testDelay)

	if ups := api.recordedUpdates(); len(ups) != 0 {
		t.Errorf("saves after close: %+v", ups)
	}
	if err := s.Edit("Second", "z"); !errors.Is(err, ErrClosed) {
		t.Errorf("edit after close: %v", err)
	}
	s.Close()
}

func TestEditWithoutSelection(t *testing.T) {
	s := New(&fakeAPI{})
	defer s.Close()
	if err := s.Edit("t", "c"); !errors.Is(err, ErrNoActiveNote) {
		t.Errorf("got %v", err)
	}
	if _, err := s.Export(); !errors.Is(err, ErrNoActiveNote) {
		t.Errorf("export: %v", err)
	}
}

func TestExportActive(t *testing.T) {
	s := newStore(t, seeded())
	_ = s.Edit("Plan", "<p>one</p><p>two</p>")
	exp, err := s.Export()
	if err != nil {
		t.Fatal(err)
	}
	if exp.Filename != "Plan.md" || exp.Body != "# Plan\n\none\n\ntwo" {
		t.Errorf("export = %+v", exp)
	}
}

func TestFlushSavesImmediately(t *testing.T) {
	api := seeded()
	s := newStore(t, api)
	s.Select("n2")
	if err := s.Edit("Second", "now"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	ups := api.recordedUpdates()
	if len(ups) != 1 || ups[0] != (update{"n2", "Second", "now"}) {
		t.Fatalf("updates = %+v", ups)
	}
	if s.Snapshot().Unsaved["n2"] {
		t.Error("note still unsaved after flush")
	}

	// The cancelled autosave task must not save again.
	time.Sleep(3 * testDelay)
	if n := len(api.recordedUpdates()); n != 1 {
		t.Errorf("updates after flush = %d", n)
	}
}

func TestSelectUnknownKeepsAutosave(t *testing.T) {
	api := seeded()
	s := newStore(t, api)

	if err := s.Edit("Third v2", "c3"); err != nil {
		t.Fatal(err)
	}
	s.Select("does-not-exist")
	s.Select("n3")

	waitFor(t, func() bool { return len(api.recordedUpdates()) == 1 })
	if ups := api.recordedUpdates(); ups[0] != (update{"n3", "Third v2", "c3"}) {
		t.Errorf("updates = %+v", ups)
	}
	waitFor(t, func() bool { return !s.Snapshot().Unsaved["n3"] })
	if s.Snapshot().ActiveID != "n3" {
		t.Errorf("active = %q", s.Snapshot().ActiveID)
	}
}

func TestListenersSeeStatesInOrder(t *testing.T) {
	api := seeded()
	s := newStore(t, api)

	var mu sync.Mutex
	var versions []uint64
	var last State
	s.OnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, st.Version)
		last = st
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = s.Edit("Third", fmt.Sprintf("draft %d-%d", i, j))
				_ = s.Flush(context.Background())
			}
		}(i)
	}
	wg.Wait()
	waitFor(t, func() bool { return len(s.Snapshot().Saving) == 0 && len(s.Snapshot().Unsaved) == 0 })
	time.Sleep(3 * testDelay)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Fatalf("state %d delivered after %d", versions[i], versions[i-1])
		}
	}
	if final := s.Snapshot(); last.Version != final.Version || last.Saving["n3"] {
		t.Errorf("last delivered state is stale: delivered v%d, current v%d", last.Version, final.Version)
	}
}

func TestSaveWithEmptyTitleStaysUnsaved(t *testing.T) {
	api := seeded()
	s := newStore(t, api)

	if err := s.Edit("", "kept body"); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	ups := api.recordedUpdates()
	if len(ups) != 1 || ups[0] != (update{"n3", "", "kept body"}) {
		t.Fatalf("updates = %+v", ups)
	}
	if !s.Snapshot().Unsaved["n3"] {
		t.Error("empty title is not stored by the server; note should stay unsaved")
	}
}
