package observability

import (
	"context"
	"testing"
)

func TestSetupDisabledWithoutAgentHost(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup() shutdown = nil, want no-op function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}
