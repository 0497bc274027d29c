package realtime

import (
	"context"
	"sync"

	"swiftresponse/internal/models"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/metrics"
)

const (
	MessageSnapshot = "snapshot"
	MessageChange   = "change"
	MessageClosed   = "closed"
)

// Message is what a session sends to its client.
type Message struct {
	Type    string                    `json:"type"`
	View    string                    `json:"view"`
	Outcome Outcome                   `json:"outcome,omitempty"`
	Record  *models.EmergencyRecord   `json:"record,omitempty"`
	Records []*models.EmergencyRecord `json:"records,omitempty"`
	Label   string                    `json:"label,omitempty"`
	Alert   bool                      `json:"alert,omitempty"`
}

// Sink receives session messages, typically a websocket client.
type Sink interface {
	Send(msg Message) error
}

type SinkFunc func(msg Message) error

func (f SinkFunc) Send(msg Message) error { return f(msg) }

// Session binds one view to a feed subscription and a sink.
type Session struct {
	feed      Feed
	reflector *Reflector
	sink      Sink
	logger    *logger.Logger

	mu       sync.Mutex
	sub      *Subscription
	degraded bool
	closed   bool
	onClose  []func()
}

func NewSession(feed Feed, reflector *Reflector, sink Sink, log *logger.Logger) *Session {
	return &Session{
		feed:      feed,
		reflector: reflector,
		sink:      sink,
		logger:    log.WithField("view", reflector.View().Name),
	}
}

// Start seeds the view, sends the snapshot and subscribes. A failed
// subscription leaves the session running without live updates.
func (s *Session) Start(ctx context.Context, seed []*models.EmergencyRecord) {
	view := s.reflector.View()
	s.reflector.Seed(seed)
	s.send(Message{Type: MessageSnapshot, View: view.Name, Records: s.reflector.Records()})

	sub, err := s.feed.Subscribe(ctx, view.Table, view.Filter, s.handle)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.degraded = true
		metrics.RealtimeEvents.WithLabelValues(view.Name, "subscribe_failed").Inc()
		s.logger.WithError(err).WithField("filter", view.Filter.String()).Warn("Realtime subscription failed, continuing without live updates")
		return
	}
	if s.closed {
		sub.Unsubscribe()
		return
	}
	s.sub = sub
	metrics.RealtimeSessions.Inc()
}

func (s *Session) handle(_ context.Context, event models.ChangeEvent) {
	view := s.reflector.View()
	result := s.reflector.Apply(event)
	metrics.RealtimeEvents.WithLabelValues(view.Name, string(result.Outcome)).Inc()
	if result.Outcome == OutcomeIgnored {
		return
	}

	s.logger.LogRealtimeEvent(view.Name, event.RecordID, string(result.Outcome), map[string]interface{}{
		"alert": result.Alert,
	})
	if result.Alert {
		metrics.RealtimeAlerts.WithLabelValues(view.Name).Inc()
	}

	msg := Message{
		Type:    MessageChange,
		View:    view.Name,
		Outcome: result.Outcome,
		Record:  result.Record,
		Alert:   result.Alert,
	}
	if result.Record != nil {
		msg.Label = result.Record.Status.Label()
	}
	s.send(msg)

	if result.Outcome == OutcomeClosed {
		s.send(Message{Type: MessageClosed, View: view.Name, Record: result.Record})
		s.Close()
	}
}

func (s *Session) send(msg Message) {
	if err := s.sink.Send(msg); err != nil {
		s.logger.WithError(err).Debug("Failed to deliver realtime message")
	}
}

// OnClose registers fn to run once when the session closes.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, fn)
}

func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	hooks := s.onClose
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		metrics.RealtimeSessions.Dec()
	}
	for _, fn := range hooks {
		fn()
	}
}

func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Reflector() *Reflector {
	return s.reflector
}

// Sessions tracks the open sessions of each client so they can be torn
// down together on disconnect or logout.
type Sessions struct {
	mu    sync.Mutex
	byKey map[string]map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{byKey: make(map[string]map[string]*Session)}
}

// Put replaces the owner's session of the same name.
func (s *Sessions) Put(owner, name string, session *Session) {
	s.mu.Lock()
	set, ok := s.byKey[owner]
	if !ok {
		set = make(map[string]*Session)
		s.byKey[owner] = set
	}
	prev := set[name]
	set[name] = session
	s.mu.Unlock()

	if prev != nil && prev != session {
		prev.Close()
	}
	session.OnClose(func() { s.forget(owner, name, session) })
}

func (s *Sessions) forget(owner, name string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.byKey[owner]; ok && set[name] == session {
		delete(set, name)
		if len(set) == 0 {
			delete(s.byKey, owner)
		}
	}
}

func (s *Sessions) Get(owner, name string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byKey[owner][name]
	return session, ok
}

func (s *Sessions) Close(owner, name string) {
	if session, ok := s.Get(owner, name); ok {
		session.Close()
	}
}

func (s *Sessions) CloseOwner(owner string) {
	s.mu.Lock()
	set := s.byKey[owner]
	delete(s.byKey, owner)
	s.mu.Unlock()

	for _, session := range set {
		session.Close()
	}
}

// CloseDegraded closes the sessions of the named view that track the
// record but run without a subscription. Subscribed sessions close
// themselves when the closing change arrives.
func (s *Sessions) CloseDegraded(name, recordID string) {
	s.mu.Lock()
	var matched []*Session
	for _, set := range s.byKey {
		session, ok := set[name]
		if !ok {
			continue
		}
		if _, tracked := session.reflector.Get(recordID); tracked && session.Degraded() {
			matched = append(matched, session)
		}
	}
	s.mu.Unlock()

	for _, session := range matched {
		session.Close()
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, set := range s.byKey {
		n += len(set)
	}
	return n
}
