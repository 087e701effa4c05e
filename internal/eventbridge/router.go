package eventbridge

import (
	"strings"
	"sync"
)

const (
	defaultSubscriberCapacity = 100
	defaultBacklogLimit       = 50
	defaultDedupeWindow       = 1024
)

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router delivers bridge events to per-participant subscribers with buffering,
// deduplication, and bounded channel semantics. Events for one participant
// reach its subscribers in arrival order.
//
// The orchestrator addresses a participant by id. Once an event has paired a
// session_id with a participant, later events that carry only the session id
// (partner chat relayed by the pairing service, for one) reach the same
// participant. Participant ids compare case-insensitively.
type Router struct {
	mu                  sync.RWMutex
	subscribers         map[string]map[*subscriber]struct{}
	backlog             map[string][]Event
	sessionParticipants map[string]string
	recentIDs           map[string]struct{}
	recentOrder         []string
	channelSize         int
	backlogLimit        int
	dedupeWindow        int
	logger              Logger
}

// Subscription represents an active participant subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with sane defaults.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers:    map[string]map[*subscriber]struct{}{},
		backlog:        map[string][]Event{},
		sessionParticipants: map[string]string{},
		recentIDs:      map[string]struct{}{},
		recentOrder:    make([]string, 0, defaultDedupeWindow),
		channelSize:    defaultSubscriberCapacity,
		backlogLimit:   defaultBacklogLimit,
		dedupeWindow:   defaultDedupeWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop/diagnostic messages.
func RouterWithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per subscriber.
func RouterWithSubscriberCapacity(cap int) RouterOption {
	return func(r *Router) {
		if cap > 0 {
			r.channelSize = cap
		}
	}
}

// RouterWithBacklogLimit overrides the backlog size for pre-subscription buffering.
func RouterWithBacklogLimit(limit int) RouterOption {
	return func(r *Router) {
		if limit > 0 {
			r.backlogLimit = limit
		}
	}
}

// RouterWithDedupeWindow controls how many recent event IDs are retained.
func RouterWithDedupeWindow(size int) RouterOption {
	return func(r *Router) {
		if size > 0 {
			r.dedupeWindow = size
		}
	}
}

// Subscribe registers for events addressed to participantID. Events that
// arrived before the first subscription are replayed from the backlog.
func (r *Router) Subscribe(participantID string) Subscription {
	participant := normalizeParticipant(participantID)
	sub := newSubscriber(r.channelSize, r.logger)
	var backlog []Event
	r.mu.Lock()
	if r.subscribers[participant] == nil {
		r.subscribers[participant] = map[*subscriber]struct{}{}
	}
	r.subscribers[participant][sub] = struct{}{}
	if existing := r.backlog[participant]; len(existing) > 0 {
		backlog = append(backlog, existing...)
		delete(r.backlog, participant)
	}
	r.mu.Unlock()
	for _, event := range backlog {
		sub.deliver(event)
	}
	return Subscription{
		Events: sub.channel(),
		cancel: func() {
			r.removeSubscriber(participant, sub)
		},
	}
}

// HandleEvent satisfies the EventProcessor interface.
func (r *Router) HandleEvent(event Event) error {
	r.Route(event)
	return nil
}

// Route resolves the event's participant, from participant_id or else the
// session it was last seen with, and delivers it to that participant's
// subscribers. With no subscriber yet it is buffered; with no resolvable
// participant it is dropped.
func (r *Router) Route(event Event) {
	if event.EventID != "" && r.isDuplicate(event.EventID) {
		return
	}
	participant := normalizeParticipant(event.ParticipantID)
	if participant == "" {
		participant = r.lookupParticipant(event.SessionID)
	}
	if participant == "" {
		if r.logger != nil {
			r.logger.Printf("eventbridge: unaddressed %s event %s dropped", event.Type, event.EventID)
		}
		return
	}
	r.trackSession(event.SessionID, participant)
	r.mu.RLock()
	subs := r.snapshotSubscribers(participant)
	r.mu.RUnlock()
	if len(subs) == 0 {
		r.bufferEvent(participant, event)
		return
	}
	for _, sub := range subs {
		sub.deliver(event)
	}
}

func (r *Router) snapshotSubscribers(participant string) []*subscriber {
	live := r.subscribers[participant]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (r *Router) removeSubscriber(participant string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs := r.subscribers[participant]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.subscribers, participant)
		}
	}
	sub.close()
}

func (r *Router) bufferEvent(participant string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := r.backlog[participant]
	if len(queue) >= r.backlogLimit {
		queue = queue[1:]
		if r.logger != nil {
			r.logger.Printf("eventbridge: backlog drop for %s (limit %d)", participant, r.backlogLimit)
		}
	}
	queue = append(queue, event)
	r.backlog[participant] = queue
}

// trackSession pairs a session with its participant. A later pairing
// replaces the earlier one.
func (r *Router) trackSession(sessionID, participantID string) {
	if sessionID == "" || participantID == "" {
		return
	}
	r.mu.Lock()
	r.sessionParticipants[sessionID] = participantID
	r.mu.Unlock()
}

func (r *Router) lookupParticipant(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionParticipants[sessionID]
}

func (r *Router) isDuplicate(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recentIDs[eventID]; ok {
		return true
	}
	r.recentIDs[eventID] = struct{}{}
	r.recentOrder = append(r.recentOrder, eventID)
	if len(r.recentOrder) > r.dedupeWindow {
		oldest := r.recentOrder[0]
		r.recentOrder = r.recentOrder[1:]
		delete(r.recentIDs, oldest)
	}
	return false
}

func normalizeParticipant(participantID string) string {
	return strings.TrimSpace(strings.ToLower(participantID))
}

type subscriber struct {
	ch      chan Event
	logger  Logger
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

// deliver never blocks. When the buffer is full a non-critical event is
// dropped; a critical one evicts the oldest queued event so arrival order is
// kept for everything that remains.
func (s *subscriber) deliver(event Event) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	if !isCriticalEvent(event.Type) {
		s.logDrop(event, "queue overflow:incoming")
		return
	}
	select {
	case oldest := <-s.ch:
		s.logDrop(oldest, "queue overflow")
	default:
	}
	select {
	case s.ch <- event:
	default:
		s.logDrop(event, "queue overflow:incoming")
	}
}

func (s *subscriber) logDrop(event Event, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.Printf("eventbridge: dropped %s (%s)", event.Type, reason)
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.closeMu.Unlock()
}

// isCriticalEvent marks events that change the phase or end the session.
func isCriticalEvent(kind string) bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	return kind == TypeSessionEnd || kind == TypeAssignPhase || kind == TypeIncomingDeal
}
