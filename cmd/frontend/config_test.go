package main

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	cfg := &Config{
		HTTPAddress: ":8080",
		Replicas:    splitList("127.0.0.1:9000,127.0.0.1:9001"),
		ServerID:    "SERVER",
		Timeout:     time.Second,
	}

	if err := cfg.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	if len(cfg.Replicas) != 2 {
		t.Errorf("replicas: got %d, want 2", len(cfg.Replicas))
	}

	cfg.Replicas = nil
	if err := cfg.validate(); err == nil {
		t.Error("expected error without replicas")
	}

	cfg.Replicas = []string{"127.0.0.1:9000"}
	cfg.Timeout = 0
	if err := cfg.validate(); err == nil {
		t.Error("expected error for zero timeout")
	}
}
