package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/types"
)

func TestNewMessageCompletedEvent(t *testing.T) {
	conv := types.Conversation{ID: "c1", UserID: "u1", Title: "Greeting", Model: "gemini-2.5-flash"}
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))

	ev := NewMessageCompletedEvent(SourceChat, OutcomeAborted, conv, at)
	checks := []struct {
		name, got, want string
	}{
		{"ContractVersion", ev.ContractVersion, types.Version},
		{"EventType", ev.EventType, EventTypeMessageCompleted},
		{"Source", ev.Source, SourceChat},
		{"Outcome", ev.Outcome, OutcomeAborted},
		{"ConversationID", ev.ConversationID, "c1"},
		{"UserID", ev.UserID, "u1"},
		{"Day", ev.Day, "2026-03-02"},
		{"Timestamp", ev.Timestamp, "2026-03-02T01:30:00Z"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestRetry(t *testing.T) {
	permanent := errors.New("permanent")
	transient := errors.New("transient")

	tests := []struct {
		name         string
		retries      int
		errs         []error
		wantErr      error
		wantAttempts int
	}{
		{"first try", 3, []error{nil}, nil, 1},
		{"recovers", 3, []error{transient, transient, nil}, nil, 3},
		{"exhausted", 2, []error{transient, transient, transient}, transient, 3},
		{"permanent stops", 3, []error{permanent}, permanent, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Retry(context.Background(), "test", tt.retries, time.Millisecond,
				func(context.Context) error {
					e := tt.errs[min(attempts, len(tt.errs)-1)]
					attempts++
					return e
				},
				func(err error) bool { return errors.Is(err, permanent) })
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Retry(ctx, "test", 3, time.Millisecond, func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("op called with a canceled context")
	}
}

func TestBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	want := []time.Duration{0, 500 * time.Millisecond, time.Second, 2 * time.Second}
	for i, w := range want {
		if got := Backoff(base, i); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestInstrumented(t *testing.T) {
	collector := metrics.NewCollector("sentinel", "memory", "test")
	rec := &Recorder{}
	a := NewInstrumented(rec, collector)
	ev := &MessageCompletedEvent{ConversationID: "c1"}

	if err := a.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rec.Err = errors.New("down")
	if err := a.Publish(context.Background(), ev); err == nil {
		t.Fatal("Publish err = nil, want error")
	}

	s := collector.Snapshot()
	if s.AdapterPublishOK != 1 || s.AdapterPublishFailed != 1 {
		t.Errorf("publish ok/failed = %d/%d, want 1/1", s.AdapterPublishOK, s.AdapterPublishFailed)
	}
	if got := len(rec.Events()); got != 1 {
		t.Errorf("recorded events = %d, want 1", got)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
