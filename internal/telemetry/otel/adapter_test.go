package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"sessioncore/internal/telemetry"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &telemetry.Event{UserID: "user-1"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	embedded.Logger
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) { r.rec = rec }

func (r *recordCapture) Enabled(context.Context, otellog.EnabledParameters) bool { return true }

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &telemetry.Event{
		EventType:  telemetry.EventRotated,
		UserID:     "user-42",
		HashPrefix: "abcd1234",
		At:         at,
	}

	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if got := capture.rec.Body().AsString(); got != telemetry.EventRotated {
		t.Errorf("body = %q, want %q", got, telemetry.EventRotated)
	}
	if !capture.rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", capture.rec.Timestamp(), at)
	}

	attrs := map[string]string{}
	capture.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	if attrs["event_type"] != telemetry.EventRotated {
		t.Errorf("event_type attr = %q", attrs["event_type"])
	}
	if attrs["user_id"] != "user-42" {
		t.Errorf("user_id attr = %q", attrs["user_id"])
	}
	if attrs["hash_prefix"] != "abcd1234" {
		t.Errorf("hash_prefix attr = %q", attrs["hash_prefix"])
	}
}

func TestEmit_ZeroTimestampDefaultsToNow(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)

	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &telemetry.Event{EventType: telemetry.EventRevoked}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	after := time.Now().UTC()

	ts := capture.rec.Timestamp()
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp %v not in [%v, %v]", ts, before, after)
	}
}
