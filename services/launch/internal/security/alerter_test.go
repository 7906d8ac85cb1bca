package security

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestAlerter(t *testing.T) *AuditAlerter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	alerter, err := NewAuditAlerter(client, "test:alerts")
	if err != nil {
		t.Fatalf("new alerter: %v", err)
	}
	fixed := time.Date(2026, 5, 1, 12, 0, 30, 0, time.UTC)
	alerter.now = func() time.Time { return fixed }
	return alerter
}

func TestAuditAlerterObserveTriggersOnce(t *testing.T) {
	alerter := newTestAlerter(t)
	ctx := context.Background()
	crossed := 0
	var last AlertResult
	for i := 0; i < 12; i++ {
		result, err := alerter.Observe(ctx, "operator_action", "forbidden", "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if result.Crossed() {
			crossed++
		}
		last = result
	}
	if !last.Triggered || last.Count != 12 || last.Threshold != 10 {
		t.Fatalf("unexpected result: %+v", last)
	}
	if crossed != 1 {
		t.Fatalf("expected threshold to be crossed once, got %d", crossed)
	}
}

func TestAuditAlerterCountsPerIP(t *testing.T) {
	alerter := newTestAlerter(t)
	ctx := context.Background()
	for i := 0; i < 9; i++ {
		if _, err := alerter.Observe(ctx, "operator_action", "forbidden", "10.0.0.1"); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	result, err := alerter.Observe(ctx, "operator_action", "forbidden", "10.0.0.2")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered || result.Count != 1 {
		t.Fatalf("other ip should start a fresh counter: %+v", result)
	}
}

func TestAuditAlerterIgnoresUnknownRule(t *testing.T) {
	alerter := newTestAlerter(t)
	result, err := alerter.Observe(context.Background(), "operator_action", "success", "127.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Triggered || result.Count != 0 {
		t.Fatalf("unexpected result for unknown rule: %+v", result)
	}
}

func TestNilAlerterIsNoop(t *testing.T) {
	var alerter *AuditAlerter
	if _, err := alerter.Observe(context.Background(), "token_rejected", "failure", ""); err != nil {
		t.Fatalf("nil alerter should not fail: %v", err)
	}
	if _, err := NewAuditAlerter(nil, ""); err == nil {
		t.Fatalf("expected error without client")
	}
}
