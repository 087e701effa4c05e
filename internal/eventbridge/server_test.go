package eventbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kingrea/bargain/internal/config"
)

func testSettings(maxBody int64) Settings {
	return Settings{Enabled: true, Host: "127.0.0.1", Port: 0, MaxBodyBytes: maxBody, ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}
}

func startServer(t *testing.T, settings Settings, opts ...Option) *Server {
	t.Helper()
	srv := NewServer(settings, opts...)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	return srv
}

func postEvent(t *testing.T, base string, payload any) int {
	t.Helper()
	buf, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	resp, err := http.Post(base+"/events", "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post event: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func turnEvent() Event {
	return Event{
		Version:       EventSchemaVersion,
		EventID:       uuid.NewString(),
		Type:          TypeTurn,
		SessionID:     "sess",
		ParticipantID: "mturk_agent_1",
		Payload:       json.RawMessage(`{"is_my_turn":true}`),
	}
}

func TestSettingsFromConfigHonorsEnv(t *testing.T) {
	t.Setenv("BARGAIN_BRIDGE_PORT", "9001")
	t.Setenv("BARGAIN_BRIDGE_HOST", "0.0.0.0")
	t.Setenv("BARGAIN_BRIDGE_ENABLED", "false")
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	settings := SettingsFromConfig(cfg)
	if settings.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", settings.Port)
	}
	if settings.Host != "0.0.0.0" {
		t.Fatalf("expected host override, got %s", settings.Host)
	}
	if settings.Enabled {
		t.Fatalf("expected enabled=false from env override")
	}
	if settings.RateLimit != DefaultRateLimit {
		t.Fatalf("expected default rate limit, got %d", settings.RateLimit)
	}
}

func TestSettingsFromNilConfig(t *testing.T) {
	settings := SettingsFromConfig(nil)
	if !settings.Enabled || settings.Address() != "127.0.0.1:8765" {
		t.Fatalf("unexpected defaults %+v", settings)
	}
}

func TestEventValidate(t *testing.T) {
	evt := turnEvent()
	if err := evt.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
	evt.Version = 99
	if err := evt.Validate(); err == nil {
		t.Fatalf("expected version error")
	}
	evt = turnEvent()
	evt.Type = "model_response"
	if err := evt.Validate(); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	evt = turnEvent()
	evt.ParticipantID = " "
	evt.Normalize()
	if err := evt.Validate(); err == nil {
		t.Fatalf("expected participant error")
	}
}

func TestServerAcceptsEvents(t *testing.T) {
	t.Parallel()
	fixed := time.Unix(1730000000, 0).UTC()
	recorded := make(chan Event, 1)
	srv := startServer(t, testSettings(1024),
		WithClock(func() time.Time { return fixed }),
		WithProcessor(EventProcessorFunc(func(e Event) error {
			recorded <- e
			return nil
		})))
	base := srv.BaseURL()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != string(StatusReady) || !health.RouterReady {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, health)
	}
	if status := postEvent(t, base, turnEvent()); status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	select {
	case evt := <-recorded:
		if !evt.ServerTime.Equal(fixed) {
			t.Fatalf("expected server time %s, got %s", fixed, evt.ServerTime)
		}
	default:
		t.Fatalf("event not forwarded to processor")
	}
}

func TestServerRejectsInvalidEvents(t *testing.T) {
	t.Parallel()
	srv := startServer(t, testSettings(1024))
	bad := turnEvent()
	bad.ParticipantID = ""
	if status := postEvent(t, srv.BaseURL(), bad); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	resp, err := http.Get(srv.BaseURL() + "/events")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestServerEnforcesPayloadLimit(t *testing.T) {
	t.Parallel()
	srv := startServer(t, testSettings(64))
	tooLarge := bytes.Repeat([]byte("a"), 512)
	payload := map[string]any{
		"version":        EventSchemaVersion,
		"event_id":       "evt",
		"type":           TypeChatMessage,
		"session_id":     "sess",
		"participant_id": "p1",
		"payload":        map[string]string{"text": string(tooLarge)},
	}
	if status := postEvent(t, srv.BaseURL(), payload); status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", status)
	}
}

func TestServerRateLimitsEvents(t *testing.T) {
	t.Parallel()
	srv := startServer(t, testSettings(1024), WithRateLimit(rate.Every(time.Hour), 2))
	base := srv.BaseURL()
	for i := 0; i < 2; i++ {
		if status := postEvent(t, base, turnEvent()); status != http.StatusAccepted {
			t.Fatalf("request %d: expected 202, got %d", i, status)
		}
	}
	if status := postEvent(t, base, turnEvent()); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
}

func TestServerRoutesToSubscriber(t *testing.T) {
	t.Parallel()
	router := NewRouter()
	sub := router.Subscribe("mturk_agent_1")
	defer sub.Close()
	srv := startServer(t, testSettings(1024), WithProcessor(router))
	evt := turnEvent()
	if status := postEvent(t, srv.BaseURL(), evt); status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	select {
	case got := <-sub.Events:
		if got.EventID != evt.EventID || got.ServerTime.IsZero() {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not routed")
	}
}

func TestDisabledServerDoesNotStart(t *testing.T) {
	settings := testSettings(1024)
	settings.Enabled = false
	if err := NewServer(settings).Start(context.Background()); err == nil {
		t.Fatalf("expected disabled error")
	}
}
