package health

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/homewatt/homewatt/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestReady_QueueConnected(t *testing.T) {
	mq := mocks.NewMockMessageQueue()
	svc := NewService(&Config{Version: "test", Queue: mq}, newTestLogger())

	resp := svc.Ready(context.Background())

	if !resp.Ready || resp.Status != StatusHealthy {
		t.Fatalf("expected ready and healthy, got ready=%v status=%s", resp.Ready, resp.Status)
	}
	check, ok := resp.Checks["queue"]
	if !ok {
		t.Fatal("expected a queue check to be registered")
	}
	if check.Status != StatusHealthy {
		t.Errorf("queue check = %s, want healthy", check.Status)
	}
}

func TestReady_QueueDownReportsDegraded(t *testing.T) {
	mq := mocks.NewMockMessageQueue()
	mq.PingFunc = func() error {
		return errors.New("connection closed")
	}
	svc := NewService(&Config{Version: "test", Queue: mq}, newTestLogger())

	resp := svc.Ready(context.Background())

	check := resp.Checks["queue"]
	if check.Status != StatusDegraded {
		t.Fatalf("queue check = %s, want degraded", check.Status)
	}
	// The periodic tick keeps metering without the event bus, so a dead
	// queue degrades readiness without failing it.
	if !resp.Ready {
		t.Error("a degraded queue must not fail readiness")
	}
	if resp.Status != StatusDegraded {
		t.Errorf("aggregate status = %s, want degraded", resp.Status)
	}
}

func TestHealth_Liveness(t *testing.T) {
	svc := NewService(&Config{Version: "test"}, newTestLogger())

	resp := svc.Health(context.Background())
	if resp.Status != StatusHealthy || resp.Version != "test" {
		t.Errorf("unexpected liveness response: %+v", resp)
	}
}
