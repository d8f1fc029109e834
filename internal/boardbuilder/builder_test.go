package boardbuilder

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/fairyboard/internal/config"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		EngineOptions:  map[string]string{"Threads": "1"},
		DefaultVariant: "chess",
		GameTTL:        time.Hour,
	}
}

func TestNewWithoutBackends(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close(context.Background())
	if d.Store != nil {
		t.Fatalf("store must be disabled without REDIS_URL")
	}
	if d.Archive == nil || d.Board == nil || d.API == nil || d.Feed == nil {
		t.Fatalf("deps = %+v", d)
	}
	if _, err := d.Board.ListGames(context.Background(), 5); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestNewWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	d, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close(context.Background())
	if d.Store == nil {
		t.Fatalf("store not wired")
	}
	if _, err := d.Board.SaveGame(context.Background(), "opening"); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	games, err := d.Board.ListGames(context.Background(), 5)
	if err != nil || len(games) != 1 {
		t.Fatalf("ListGames = %v, %v", games, err)
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisURL = "http://localhost"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for redis scheme")
	}
	cfg = baseConfig()
	cfg.DefaultVariant = "shogi"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
