// Package realtime fans trip change events out to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/events"
)

var _ events.Publisher = (*Hub)(nil)

const (
	defaultBufferSize   = 32
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	maxInboundBytes     = 1 << 10
)

type HubOptions struct {
	// BufferSize is the number of pending messages per connection; a connection whose
	// buffer is full is dropped.
	BufferSize   int
	PingInterval time.Duration
	WriteTimeout time.Duration
	// AllowedOrigins lists browser origins allowed to connect. Requests without an
	// Origin header and same-host origins are always allowed.
	AllowedOrigins []string
}

// Hub tracks websocket connections per trip. It implements events.Publisher.
type Hub struct {
	log      *zap.Logger
	opts     HubOptions
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	subs   map[domain.TripID]map[*client]struct{}
	closed bool

	// pumps counts running read and write pumps.
	pumps sync.WaitGroup
}

type client struct {
	tripID   domain.TripID
	memberID domain.MemberID
	conn     *websocket.Conn
	send     chan []byte
}

// message is the JSON frame sent to subscribers.
type message struct {
	Type     events.Type `json:"type"`
	TripID   string      `json:"tripId"`
	EntityID string      `json:"entityId,omitempty"`
	ActorID  string      `json:"actorId,omitempty"`
	At       time.Time   `json:"at"`
}

func NewHub(log *zap.Logger, opts HubOptions) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	h := &Hub{
		log:  log.Named("realtime"),
		opts: opts,
		subs: make(map[domain.TripID]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Publish delivers e to every connection subscribed to e.TripID without blocking.
func (h *Hub) Publish(_ context.Context, e events.Event) {
	b, err := json.Marshal(message{
		Type:     e.Type,
		TripID:   string(e.TripID),
		EntityID: e.EntityID,
		ActorID:  string(e.ActorID),
		At:       e.At.UTC(),
	})
	if err != nil {
		h.log.Error("marshal event", zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.subs[e.TripID] {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Debug("dropping slow subscriber",
			zap.String("tripId", string(c.tripID)),
			zap.String("memberId", string(c.memberID)),
		)
		h.remove(c)
	}

	switch e.Type {
	case events.TripDeleted:
		// Subscribers of a deleted trip have nothing left to watch.
		h.closeTrip(e.TripID)
	case events.ParticipantRemoved:
		// The removal notice is already queued, so the member sees it before the close.
		h.DropMember(e.TripID, domain.MemberID(e.EntityID))
	}
}

// DropMember disconnects every connection memberID holds on tripID.
func (h *Hub) DropMember(tripID domain.TripID, memberID domain.MemberID) {
	h.mu.RLock()
	var cs []*client
	for c := range h.subs[tripID] {
		if c.memberID == memberID {
			cs = append(cs, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range cs {
		h.log.Debug("dropping removed participant",
			zap.String("tripId", string(tripID)),
			zap.String("memberId", string(memberID)),
		)
		h.remove(c)
	}
}

// Serve upgrades the request and streams tripID events to it until the connection closes.
// Access checks are the caller's responsibility.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tripID domain.TripID, memberID domain.MemberID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		return err
	}
	c := &client{
		tripID:   tripID,
		memberID: memberID,
		conn:     conn,
		send:     make(chan []byte, h.opts.BufferSize),
	}
	if !h.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(h.opts.WriteTimeout))
		return conn.Close()
	}
	h.log.Debug("subscriber connected", zap.String("tripId", string(tripID)), zap.String("memberId", string(memberID)))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// SubscriberCount reports how many connections watch tripID.
func (h *Hub) SubscriberCount(tripID domain.TripID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tripID])
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*client
	for _, set := range h.subs {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		h.remove(c)
	}
	h.pumps.Wait()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.subs[c.tripID]
	if !ok {
		set = make(map[*client]struct{})
		h.subs[c.tripID] = set
	}
	set[c] = struct{}{}
	h.pumps.Add(2)
	return true
}

// remove unregisters c and closes its send channel. Sends happen under the read lock,
// so closing under the write lock cannot race with them.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.tripID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subs, c.tripID)
	}
	close(c.send)
}

func (h *Hub) closeTrip(tripID domain.TripID) {
	h.mu.RLock()
	cs := make([]*client, 0, len(h.subs[tripID]))
	for c := range h.subs[tripID] {
		cs = append(cs, c)
	}
	h.mu.RUnlock()
	for _, c := range cs {
		h.remove(c)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.pumps.Done()
	}()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.log.Debug("write failed", zap.String("tripId", string(c.tripID)), zap.Error(err))
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump drains inbound frames so control messages are processed. Clients do not send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		h.log.Debug("subscriber disconnected", zap.String("tripId", string(c.tripID)), zap.String("memberId", string(c.memberID)))
		h.pumps.Done()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	deadline := func() time.Time { return time.Now().Add(2 * h.opts.PingInterval) }
	_ = c.conn.SetReadDeadline(deadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(deadline())
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
