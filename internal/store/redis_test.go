package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/fairyboard/pkg/boarddto"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Hour), mr
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, boarddto.SavedGame{
		Name:     "sicilian",
		Variant:  "chess",
		StartFEN: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Moves:    []string{"e2e4", "c7c5"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.SavedAt.IsZero() {
		t.Fatalf("Save must assign id and time: %+v", saved)
	}
	if ttl := mr.TTL(s.keyGame(saved.ID)); ttl != time.Hour {
		t.Fatalf("ttl = %s", ttl)
	}

	got, err := s.Load(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "sicilian" || len(got.Moves) != 2 || got.Moves[1] != "c7c5" {
		t.Fatalf("Load = %+v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirstAndPrunes(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		if _, err := s.Save(ctx, boarddto.SavedGame{ID: name, Variant: "chess", SavedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Save %s: %v", name, err)
		}
	}
	mr.Del(s.keyGame("b"))

	list, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "a" {
		t.Fatalf("List = %+v", list)
	}
	if n, _ := s.rdb.ZCard(ctx, s.keyIndex()).Result(); n != 2 {
		t.Fatalf("expired entry not pruned, index size %d", n)
	}

	if err := s.Delete(ctx, "c"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted game still loads: %v", err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@cache.local:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "cache.local:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	opts, err = ParseRedisURL("redis://localhost")
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 0 {
		t.Fatalf("defaults = %+v, %v", opts, err)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestParseRedisURLIPv6(t *testing.T) {
	opts, err := ParseRedisURL("redis://[::1]:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "[::1]:6380" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	opts, err = ParseRedisURL("rediss://[fd00::5]")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "[fd00::5]:6379" || opts.TLSConfig == nil || opts.TLSConfig.ServerName != "fd00::5" {
		t.Fatalf("tls opts = %+v", opts)
	}
}
