package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()
	if b.ClientCount("") != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("alice")
	if b.ClientCount("alice") != 1 || b.ClientCount("") != 1 {
		t.Fatalf("expected 1 client")
	}
	if b.ClientCount("bob") != 0 {
		t.Fatalf("bob should have no clients")
	}
	b.Unsubscribe(ch)
	if b.ClientCount("") != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishNoteEventDelivery(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("alice", "created", "n1")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":"n1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestEventsStayWithOwner(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()
	alice := b.Subscribe("alice")
	defer b.Unsubscribe(alice)
	bob := b.Subscribe("bob")
	defer b.Unsubscribe(bob)

	b.PublishNoteEvent("alice", "updated", "secret")
	b.PublishNoteEvent("bob", "deleted", "b1")

	select {
	case msg := <-bob:
		if strings.Contains(string(msg), "secret") {
			t.Fatalf("bob received alice's event: %q", msg)
		}
		if !strings.Contains(string(msg), "note.deleted") {
			t.Errorf("unexpected bob event: %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for bob's event")
	}

	select {
	case msg := <-alice:
		if !strings.Contains(string(msg), `"id":"secret"`) {
			t.Errorf("unexpected alice event: %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for alice's event")
	}

	select {
	case msg := <-bob:
		t.Fatalf("bob received extra event: %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeStreamsOwnerEvents(t *testing.T) {
	b := NewBroker(8)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.Serve(w, req, "alice")
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount("alice") != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishNoteEvent("alice", "updated", "n1")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount("") != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(4)
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	// Overfill the client queue; publishing must not block.
	for i := 0; i < 10; i++ {
		b.PublishNoteEvent("alice", "updated", "x")
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(ch); n != 4 {
		t.Errorf("queued = %d, want 4", n)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(8)
	ch := b.Subscribe("alice")
	if b.ClientCount("") != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount("") != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.PublishNoteEvent("alice", "updated", "x")
	b.Unsubscribe(ch)
	if sub := b.Subscribe("alice"); sub == nil {
		t.Fatal("subscribe after close returned nil")
	}
}
