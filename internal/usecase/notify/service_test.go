package notify_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"incentive-monitor/internal/domain/entity"
	"incentive-monitor/internal/usecase/notify"
)

// mockChannel is a controllable Channel implementation.
type mockChannel struct {
	name     string
	enabled  bool
	sendErr  error
	sent     int32
	panicOn  bool
	sendHook func()
}

func (m *mockChannel) Name() string    { return m.name }
func (m *mockChannel) IsEnabled() bool { return m.enabled }

func (m *mockChannel) Send(_ context.Context, _ *entity.Event, _ string) error {
	if m.panicOn {
		panic("channel blew up")
	}
	if m.sendHook != nil {
		m.sendHook()
	}
	atomic.AddInt32(&m.sent, 1)
	return m.sendErr
}

func (m *mockChannel) sentCount() int32 {
	return atomic.LoadInt32(&m.sent)
}

func criticalEvent() *entity.Event {
	return &entity.Event{
		ID:             42,
		JurisdictionID: "GA",
		EventType:      entity.EventTypeExpiration,
		Severity:       entity.SeverityCritical,
		Title:          "Credit program expires",
		Summary:        "The entertainment credit sunsets at year end.",
		SourceURL:      "https://georgia.org/updates",
		DetectedAt:     time.Now(),
	}
}

// shutdownAndWait drains in-flight notifications so send counters are final.
func shutdownAndWait(t *testing.T, svc notify.Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}
}

func TestNotifyEvent_SendsToAllEnabledChannels(t *testing.T) {
	slack := &mockChannel{name: "slack", enabled: true}
	discord := &mockChannel{name: "discord", enabled: true}
	disabled := &mockChannel{name: "noop", enabled: false}

	svc := notify.NewService([]notify.Channel{slack, discord, disabled}, 5)

	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("NotifyEvent err=%v", err)
	}
	shutdownAndWait(t, svc)

	if slack.sentCount() != 1 {
		t.Errorf("slack sent = %d", slack.sentCount())
	}
	if discord.sentCount() != 1 {
		t.Errorf("discord sent = %d", discord.sentCount())
	}
	if disabled.sentCount() != 0 {
		t.Errorf("disabled channel received a send")
	}
}

func TestNotifyEvent_InvalidInputRejected(t *testing.T) {
	ch := &mockChannel{name: "slack", enabled: true}
	svc := notify.NewService([]notify.Channel{ch}, 5)

	if err := svc.NotifyEvent(context.Background(), nil, "Georgia"); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("nil event err=%v, want ErrInvalidInput", err)
	}

	ev := criticalEvent()
	ev.Title = ""
	if err := svc.NotifyEvent(context.Background(), ev, "Georgia"); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("empty title err=%v, want ErrInvalidInput", err)
	}

	shutdownAndWait(t, svc)
	if ch.sentCount() != 0 {
		t.Errorf("invalid input reached a channel: %d sends", ch.sentCount())
	}
}

func TestNotifyEvent_NoChannels(t *testing.T) {
	svc := notify.NewService(nil, 5)
	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("NotifyEvent err=%v", err)
	}
	shutdownAndWait(t, svc)
}

func TestNotifyEvent_FailureDoesNotPropagate(t *testing.T) {
	ch := &mockChannel{name: "slack", enabled: true, sendErr: errors.New("webhook 500")}
	svc := notify.NewService([]notify.Channel{ch}, 5)

	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("send failure propagated: %v", err)
	}
	shutdownAndWait(t, svc)

	if ch.sentCount() != 1 {
		t.Errorf("sent = %d", ch.sentCount())
	}
}

func TestNotifyEvent_PanicRecovered(t *testing.T) {
	panicking := &mockChannel{name: "slack", enabled: true, panicOn: true}
	healthy := &mockChannel{name: "discord", enabled: true}
	svc := notify.NewService([]notify.Channel{panicking, healthy}, 5)

	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("NotifyEvent err=%v", err)
	}
	shutdownAndWait(t, svc)

	if healthy.sentCount() != 1 {
		t.Error("panic in one channel affected another")
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ch := &mockChannel{name: "slack", enabled: true, sendErr: errors.New("webhook down")}
	svc := notify.NewService([]notify.Channel{ch}, 5)

	// Threshold is 5 consecutive failures; drive it past that, waiting for
	// each dispatch to land so failures are truly consecutive.
	for i := 0; i < 5; i++ {
		if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
			t.Fatalf("NotifyEvent err=%v", err)
		}
		waitForSends(t, ch, int32(i+1))
	}

	// The breaker state is recorded after Send returns; poll briefly.
	var status notify.ChannelHealthStatus
	deadline := time.Now().Add(3 * time.Second)
	for {
		statuses := svc.GetChannelHealth()
		if len(statuses) != 1 {
			t.Fatalf("statuses = %d", len(statuses))
		}
		status = statuses[0]
		if status.CircuitBreakerOpen || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !status.CircuitBreakerOpen {
		t.Error("circuit breaker not open after threshold failures")
	}
	if status.DisabledUntil == nil {
		t.Error("DisabledUntil not set while breaker is open")
	}

	// With the breaker open, further sends are dropped before Send.
	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("NotifyEvent err=%v", err)
	}
	shutdownAndWait(t, svc)
	if ch.sentCount() != 5 {
		t.Errorf("sends after breaker open = %d, want 5", ch.sentCount())
	}
}

func waitForSends(t *testing.T, ch *mockChannel, want int32) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for ch.sentCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sends, have %d", want, ch.sentCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetChannelHealth(t *testing.T) {
	slack := &mockChannel{name: "slack", enabled: true}
	discord := &mockChannel{name: "discord", enabled: false}
	svc := notify.NewService([]notify.Channel{slack, discord}, 5)
	defer shutdownAndWait(t, svc)

	statuses := svc.GetChannelHealth()
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d", len(statuses))
	}
	if statuses[0].Name != "slack" || !statuses[0].Enabled {
		t.Errorf("slack status = %+v", statuses[0])
	}
	if statuses[1].Name != "discord" || statuses[1].Enabled {
		t.Errorf("discord status = %+v", statuses[1])
	}
	for _, st := range statuses {
		if st.CircuitBreakerOpen {
			t.Errorf("breaker open on fresh service: %+v", st)
		}
	}
}

func TestShutdown_WaitsForInflightSends(t *testing.T) {
	release := make(chan struct{})
	ch := &mockChannel{name: "slack", enabled: true, sendHook: func() { <-release }}
	svc := notify.NewService([]notify.Channel{ch}, 5)

	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("NotifyEvent err=%v", err)
	}

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- svc.Shutdown(ctx)
	}()

	select {
	case <-done:
		t.Fatal("Shutdown returned while a send was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Shutdown err=%v", err)
	}
	if ch.sentCount() != 1 {
		t.Errorf("sent = %d", ch.sentCount())
	}
}

func TestShutdown_TimesOutOnStuckSend(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	ch := &mockChannel{name: "slack", enabled: true, sendHook: func() { <-block }}
	svc := notify.NewService([]notify.Channel{ch}, 5)

	if err := svc.NotifyEvent(context.Background(), criticalEvent(), "Georgia"); err != nil {
		t.Fatalf("NotifyEvent err=%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := svc.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown err=%v, want deadline exceeded", err)
	}
}
