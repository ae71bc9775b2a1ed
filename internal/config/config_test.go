package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	v, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if got := v.GetInt("plugins.dispatch.max_retries"); got != 3 {
		t.Errorf("max_retries default = %d, want 3", got)
	}
	if got := v.GetDuration("plugins.dispatch.send_timeout"); got != 15*time.Second {
		t.Errorf("send_timeout default = %v, want 15s", got)
	}
	if got := v.GetDuration("plugins.discovery.probe_timeout"); got != 1500*time.Millisecond {
		t.Errorf("probe_timeout default = %v, want 1.5s", got)
	}
	if got := v.GetInt("plugins.discovery.batch_size"); got != 20 {
		t.Errorf("batch_size default = %d, want 20", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "printdeck.yaml")
	contents := "business:\n  store_name: Testaurant\nserver:\n  port: \"9090\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}

	if got := v.GetString("business.store_name"); got != "Testaurant" {
		t.Errorf("store_name = %q, want %q", got, "Testaurant")
	}
	if got := v.GetString("server.port"); got != "9090" {
		t.Errorf("server.port = %q, want %q", got, "9090")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/printdeck.yaml"); err == nil {
		t.Error("Load() with missing file = nil error, want error")
	}
}
