package main

import (
	"strings"
	"testing"
	"time"
)

func TestSplitList(t *testing.T) {
	got := splitList(" a:1, ,b:2,")
	if len(got) != 2 || got[0] != "a:1" || got[1] != "b:2" {
		t.Errorf("got %v, want [a:1 b:2]", got)
	}

	if got := splitList(""); len(got) != 0 {
		t.Errorf("empty list: got %v", got)
	}
}

func TestValidate(t *testing.T) {
	ok := &Config{QUICAddress: ":9000", DataPath: "./data", JoinTimeout: time.Second}
	if err := ok.validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	self := &Config{QUICAddress: ":9000", DataPath: "./data", Peers: []string{":9000"}}
	if err := self.validate(); err == nil {
		t.Error("expected error for own address in peers")
	}

	noData := &Config{QUICAddress: ":9000"}
	if err := noData.validate(); err == nil {
		t.Error("expected error for missing data path")
	}

	noData.InMemory = true
	if err := noData.validate(); err != nil {
		t.Errorf("in-memory config rejected: %v", err)
	}
}

func TestValidateParsesAllowList(t *testing.T) {
	key := strings.Repeat("ab", 32)

	cfg := &Config{QUICAddress: ":9000", InMemory: true, allowList: key + ", " + key}
	if err := cfg.validate(); err != nil {
		t.Fatalf("valid allow list rejected: %v", err)
	}
	if len(cfg.AllowedKeys) != 2 || len(cfg.AllowedKeys[0]) != 32 {
		t.Errorf("got %d keys, want 2 of 32 bytes", len(cfg.AllowedKeys))
	}

	for _, bad := range []string{"zz", "abcd"} {
		cfg := &Config{QUICAddress: ":9000", InMemory: true, allowList: bad}
		if err := cfg.validate(); err == nil {
			t.Errorf("allow list %q accepted", bad)
		}
	}
}
