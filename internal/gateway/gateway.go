// Package gateway is the WebSocket/HTTP transport in front of the realm
// engine. It owns no business logic: decode, validate, call the engine,
// fan its subscription stream back out to the socket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/keshon/server-siren/internal/realm"
	"github.com/keshon/server-siren/internal/storage"
	"github.com/keshon/server-siren/internal/wiretypes"
	"github.com/keshon/server-siren/pkg/floodgate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 8 << 10

	// Inbound allowance per connection, in events per second. Shrinks for
	// clients that keep hitting it, recovers while they behave.
	inboundInitial = 5
	inboundMin     = 1
	inboundMax     = 20
)

var errNotJoined = errors.New("first event must be join_soul_realm")

type Server struct {
	addr     string
	engine   *realm.Engine
	store    *storage.Storage
	upgrader websocket.Upgrader
}

func New(addr string, engine *realm.Engine, store *storage.Storage) *Server {
	return &Server{
		addr:   addr,
		engine: engine,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP server and blocks until it exits or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/stats", s.handleStats)

	srv := &http.Server{Addr: s.addr, Handler: r}
	go func() {
		<-ctx.Done()
		log.Println("[INFO] [GATEWAY] Shutting down...")
		srv.Shutdown(context.Background()) //nolint:errcheck
	}()

	log.Printf("[INFO] [GATEWAY] Listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]any{
		"engine":  s.engine.Stats(),
		"storage": s.store.Stats(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Println("[WARN] [GATEWAY] writing stats:", err)
	}
}

// client is one live connection. A connection serves exactly one user in
// one room; out carries everything headed back down the socket.
type client struct {
	userID  string
	soulID  string
	sub     *realm.Subscription
	out     chan wiretypes.Envelope
	fwdDone chan struct{}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[WARN] [GATEWAY] upgrade failed:", err)
		return
	}
	defer conn.Close()

	c := &client{out: make(chan wiretypes.Envelope, 64)}
	writerDone := make(chan struct{})
	go s.writer(conn, c.out, writerDone)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	gate := floodgate.New(inboundInitial, inboundMin, inboundMax, 1, 0.5)

	for {
		var env wiretypes.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("[WARN] [GATEWAY] read:", err)
			}
			break
		}
		if !gate.Allow() {
			c.sendError("slow down")
			continue
		}
		if err := s.routeEnvelope(c, env); err != nil {
			c.sendError(err.Error())
		}
	}

	// Disconnect counts as leaving the realm.
	if c.sub != nil {
		if err := s.engine.HandleLeave(c.userID, c.soulID); err != nil && err != realm.ErrUnknownSession {
			log.Println("[WARN] [GATEWAY] leave on disconnect:", err)
		}
		c.sub.Close()
		<-c.fwdDone
	}
	close(c.out)
	<-writerDone
}

// writer is the connection's only socket writer.
func (s *Server) writer(conn *websocket.Conn, out <-chan wiretypes.Envelope, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case env, ok := <-out:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// routeEnvelope validates one inbound envelope and hands it to the engine.
func (s *Server) routeEnvelope(c *client, env wiretypes.Envelope) error {
	switch env.Event {
	case wiretypes.EventJoinSoulRealm:
		var p wiretypes.JoinSoulRealm
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return realm.ErrMalformedEvent
		}
		if c.sub != nil {
			return errors.New("already joined")
		}
		// Subscribe before joining so the entry events are not missed.
		sub := s.engine.Subscribe(p.SoulID, p.UserID)
		if err := s.engine.HandleJoin(p.UserID, p.SessionData.Username, p.SoulID); err != nil {
			sub.Close()
			return err
		}
		c.userID, c.soulID, c.sub = p.UserID, p.SoulID, sub
		c.fwdDone = make(chan struct{})
		go c.forward()
		return nil

	case wiretypes.EventUserMessage:
		var p wiretypes.UserMessage
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return realm.ErrMalformedEvent
		}
		return s.engine.HandleMessage(orDefault(p.UserID, c.userID), orDefault(p.SoulID, c.soulID), p.Message)

	case wiretypes.EventDivineOffering:
		var p wiretypes.DivineOffering
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return realm.ErrMalformedEvent
		}
		return s.engine.HandleOffering(orDefault(p.UserID, c.userID), orDefault(p.SoulID, c.soulID), p.Offering.Type, p.Offering.Amount)

	case wiretypes.EventPremiumPurchase:
		var p wiretypes.PremiumPurchase
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return realm.ErrMalformedEvent
		}
		return s.engine.HandlePurchase(orDefault(p.UserID, c.userID), c.soulID, p.FeatureKey, p.Amount)

	case wiretypes.EventTypingStart, wiretypes.EventTypingStop:
		var p wiretypes.Typing
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return realm.ErrMalformedEvent
		}
		typing := env.Event == wiretypes.EventTypingStart
		return s.engine.HandleTyping(orDefault(p.UserID, c.userID), orDefault(p.SoulID, c.soulID), typing)

	case wiretypes.EventLeaveSoulRealm:
		var p wiretypes.LeaveSoulRealm
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return realm.ErrMalformedEvent
		}
		return s.engine.HandleLeave(orDefault(p.UserID, c.userID), orDefault(p.SoulID, c.soulID))

	default:
		if c.sub == nil {
			return errNotJoined
		}
		return realm.ErrMalformedEvent
	}
}

// forward pumps engine events for this subscription into the socket writer.
func (c *client) forward() {
	defer close(c.fwdDone)
	for ev := range c.sub.C {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			log.Println("[ERR] [GATEWAY] encoding event:", err)
			continue
		}
		select {
		case c.out <- wiretypes.Envelope{Event: ev.Name, Data: data}:
		default:
			log.Printf("[WARN] [GATEWAY] dropping %s for saturated connection %s", ev.Name, c.userID)
		}
	}
}

func (c *client) sendError(msg string) {
	data, _ := json.Marshal(wiretypes.Error{Message: msg})
	select {
	case c.out <- wiretypes.Envelope{Event: wiretypes.EventError, Data: data}:
	default:
	}
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
