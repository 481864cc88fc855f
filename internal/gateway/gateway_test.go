package gateway

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/keshon/server-siren/internal/analysis/sentiment"
	"github.com/keshon/server-siren/internal/realm"
	"github.com/keshon/server-siren/internal/storage"
	"github.com/keshon/server-siren/internal/wiretypes"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "siren.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	engine := realm.NewEngine(store, sentiment.Analyze, realm.NewRand(7), realm.Options{
		CohortSize:  4,
		HistorySize: 20,
	})
	return New(":0", engine, store)
}

func envelope(t *testing.T, event string, payload any) wiretypes.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return wiretypes.Envelope{Event: event, Data: data}
}

func TestRouteRequiresJoinFirst(t *testing.T) {
	s := newTestServer(t)
	c := &client{out: make(chan wiretypes.Envelope, 8)}

	env := envelope(t, wiretypes.EventUserMessage, wiretypes.UserMessage{Message: "hi"})
	if err := s.routeEnvelope(c, env); err == nil {
		t.Fatal("expected an error for a message before join")
	}
}

func TestRouteJoinThenMessage(t *testing.T) {
	s := newTestServer(t)
	c := &client{out: make(chan wiretypes.Envelope, 8)}

	join := envelope(t, wiretypes.EventJoinSoulRealm, wiretypes.JoinSoulRealm{
		UserID:      "u1",
		SoulID:      "soul-1",
		SessionData: wiretypes.SessionData{Username: "dana"},
	})
	if err := s.routeEnvelope(c, join); err != nil {
		t.Fatalf("join: %v", err)
	}
	if c.sub == nil || c.userID != "u1" || c.soulID != "soul-1" {
		t.Fatalf("client not bound after join: %+v", c)
	}

	// Follow-up events may omit the ids; the connection fills them in.
	msg := envelope(t, wiretypes.EventUserMessage, wiretypes.UserMessage{Message: "you look stunning"})
	if err := s.routeEnvelope(c, msg); err != nil {
		t.Fatalf("message: %v", err)
	}
}

func TestRouteRejectsDoubleJoin(t *testing.T) {
	s := newTestServer(t)
	c := &client{out: make(chan wiretypes.Envelope, 8)}

	join := envelope(t, wiretypes.EventJoinSoulRealm, wiretypes.JoinSoulRealm{UserID: "u1", SoulID: "soul-1"})
	if err := s.routeEnvelope(c, join); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.routeEnvelope(c, join); err == nil {
		t.Fatal("expected second join to be rejected")
	}
}

func TestRouteMalformedPayload(t *testing.T) {
	s := newTestServer(t)
	c := &client{out: make(chan wiretypes.Envelope, 8)}

	env := wiretypes.Envelope{Event: wiretypes.EventJoinSoulRealm, Data: json.RawMessage(`"not an object"`)}
	if err := s.routeEnvelope(c, env); err != realm.ErrMalformedEvent {
		t.Fatalf("got %v, want ErrMalformedEvent", err)
	}
}

func TestRouteUnknownEvent(t *testing.T) {
	s := newTestServer(t)
	c := &client{out: make(chan wiretypes.Envelope, 8)}

	join := envelope(t, wiretypes.EventJoinSoulRealm, wiretypes.JoinSoulRealm{UserID: "u1", SoulID: "soul-1"})
	if err := s.routeEnvelope(c, join); err != nil {
		t.Fatalf("join: %v", err)
	}
	env := wiretypes.Envelope{Event: "summon_dragon"}
	if err := s.routeEnvelope(c, env); err != realm.ErrMalformedEvent {
		t.Fatalf("got %v, want ErrMalformedEvent", err)
	}
}

func TestSendErrorNeverBlocks(t *testing.T) {
	c := &client{out: make(chan wiretypes.Envelope, 1)}
	c.sendError("one")
	c.sendError("two") // channel full, must drop instead of blocking

	env := <-c.out
	if env.Event != wiretypes.EventError {
		t.Fatalf("event = %q, want error", env.Event)
	}
	var payload wiretypes.Error
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Message != "one" {
		t.Fatalf("message = %q, want %q", payload.Message, "one")
	}
}
