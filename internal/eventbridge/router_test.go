package eventbridge

import (
	"testing"
)

func TestRouterBuffersAndFlushes(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(4))
	first := Event{EventID: "evt-1", ParticipantID: "mturk_agent_1", Type: TypeAssignPhase}
	second := Event{EventID: "evt-2", ParticipantID: "mturk_agent_1", Type: TypeChatMessage}
	router.Route(first)
	router.Route(second)
	sub := router.Subscribe("MTURK_agent_1")
	defer sub.Close()
	got1 := <-sub.Events
	if got1.EventID != first.EventID {
		t.Fatalf("expected first buffered event, got %s", got1.EventID)
	}
	got2 := <-sub.Events
	if got2.EventID != second.EventID {
		t.Fatalf("expected second buffered event, got %s", got2.EventID)
	}
}

func TestRouterDedupeByEventID(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe("p1")
	defer sub.Close()
	event := Event{EventID: "evt-1", ParticipantID: "p1", Type: TypeTurn}
	router.Route(event)
	router.Route(event)
	select {
	case got := <-sub.Events:
		if got.EventID != event.EventID {
			t.Fatalf("unexpected event: %s", got.EventID)
		}
	default:
		t.Fatalf("expected first delivery")
	}
	select {
	case <-sub.Events:
		t.Fatalf("duplicate event delivered")
	default:
	}
}

func TestRouterIsolatesParticipants(t *testing.T) {
	router := NewRouter()
	mine := router.Subscribe("p1")
	defer mine.Close()
	theirs := router.Subscribe("p2")
	defer theirs.Close()
	router.Route(Event{EventID: "evt-1", ParticipantID: "p2", SessionID: "s-9", Type: TypeTurn})
	// later events may omit the participant and are resolved by session
	router.Route(Event{EventID: "evt-2", SessionID: "s-9", Type: TypeChatMessage})
	select {
	case got := <-mine.Events:
		t.Fatalf("p1 received %s", got.EventID)
	default:
	}
	for _, want := range []string{"evt-1", "evt-2"} {
		select {
		case got := <-theirs.Events:
			if got.EventID != want {
				t.Fatalf("expected %s, got %s", want, got.EventID)
			}
		default:
			t.Fatalf("missing %s", want)
		}
	}
}

func TestRouterCriticalEventEvictsOldest(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe("p1")
	defer sub.Close()
	oldest := Event{EventID: "evt-1", ParticipantID: "p1", Type: TypeTurn}
	critical := Event{EventID: "evt-2", ParticipantID: "p1", Type: TypeSessionEnd}
	router.Route(oldest)
	router.Route(critical)
	if got := <-sub.Events; got.EventID != critical.EventID {
		t.Fatalf("expected critical event to replace oldest, got %s", got.EventID)
	}
}

func TestRouterDropsIncomingWhenFull(t *testing.T) {
	router := NewRouter(RouterWithSubscriberCapacity(1))
	sub := router.Subscribe("p1")
	defer sub.Close()
	oldest := Event{EventID: "evt-1", ParticipantID: "p1", Type: TypeAssignPhase}
	droppable := Event{EventID: "evt-2", ParticipantID: "p1", Type: TypeTurn}
	router.Route(oldest)
	router.Route(droppable)
	if got := <-sub.Events; got.EventID != oldest.EventID {
		t.Fatalf("expected oldest critical event to remain, got %s", got.EventID)
	}
	select {
	case <-sub.Events:
		t.Fatalf("unexpected extra event")
	default:
	}
}

func TestRouterBacklogLimit(t *testing.T) {
	router := NewRouter(RouterWithBacklogLimit(2))
	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		router.Route(Event{EventID: id, ParticipantID: "p1", Type: TypeChatMessage})
	}
	sub := router.Subscribe("p1")
	defer sub.Close()
	for _, want := range []string{"evt-2", "evt-3"} {
		if got := <-sub.Events; got.EventID != want {
			t.Fatalf("expected %s, got %s", want, got.EventID)
		}
	}
}

func TestSubscriptionCloseEndsChannel(t *testing.T) {
	router := NewRouter()
	sub := router.Subscribe("p1")
	sub.Close()
	if _, ok := <-sub.Events; ok {
		t.Fatalf("expected closed channel")
	}
	// routing after close buffers instead of panicking
	router.Route(Event{EventID: "evt-1", ParticipantID: "p1", Type: TypeTurn})
}
