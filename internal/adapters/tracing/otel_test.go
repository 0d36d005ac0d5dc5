package tracing

import (
	"context"
	"testing"
)

func TestInitTracerReturnsShutdown(t *testing.T) {
	shutdown, err := InitTracer("advisim-test")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("no shutdown function returned")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}
