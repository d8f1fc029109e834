package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FAIRYBOARD_CONFIG", "ENGINE_PATH", "ENGINE_OPTIONS", "ENGINE_DIR", "DEFAULT_VARIANT", "VARIANTS_PATH",
		"HTTP_LISTEN", "FEED_LISTEN", "REDIS_URL", "DATABASE_URL", "MESSAGES_DIR", "GAME_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultVariant != "chess" || cfg.HTTPListen != "127.0.0.1:8080" || cfg.FeedListen != "127.0.0.1:8081" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.EngineDir != "" {
		t.Fatalf("engine dir = %q", cfg.EngineDir)
	}
	if cfg.EngineOptions["Threads"] != "1" {
		t.Fatalf("engine options = %v", cfg.EngineOptions)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "fairyboard.yaml")
	body := `engine_path: /opt/engine
engine_options:
  Threads: "4"
  Hash: "128"
default_variant: crazyhouse
http_listen: ":9000"
game_ttl: 2h
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FAIRYBOARD_CONFIG", path)
	t.Setenv("ENGINE_OPTIONS", "Hash=256, MultiPV=3")
	t.Setenv("HTTP_LISTEN", ":7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EnginePath != "/opt/engine" || cfg.DefaultVariant != "crazyhouse" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.HTTPListen != ":7000" {
		t.Fatalf("env must win over file: %q", cfg.HTTPListen)
	}
	want := map[string]string{"Threads": "4", "Hash": "256", "MultiPV": "3"}
	for k, v := range want {
		if cfg.EngineOptions[k] != v {
			t.Fatalf("option %s = %q, want %q", k, cfg.EngineOptions[k], v)
		}
	}
	if cfg.GameTTL != 2*time.Hour {
		t.Fatalf("ttl = %s", cfg.GameTTL)
	}
}

func TestEngineDirFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENGINE_DIR", " /opt/engines ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EngineDir != "/opt/engines" {
		t.Fatalf("engine dir = %q", cfg.EngineDir)
	}
}

func TestGameTTLSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAME_TTL", "90")
	cfg, err := Load()
	if err != nil || cfg.GameTTL != 90*time.Second {
		t.Fatalf("ttl = %v, %v", cfg, err)
	}
	t.Setenv("GAME_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad GAME_TTL")
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions("Threads=2,, UCI_Variant = crazyhouse ,Ponder=")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if opts["Threads"] != "2" || opts["UCI_Variant"] != "crazyhouse" || opts["Ponder"] != "" || len(opts) != 3 {
		t.Fatalf("opts = %v", opts)
	}
	if _, err := ParseOptions("Threads"); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}
