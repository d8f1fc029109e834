// Package store keeps saved game snapshots in Redis.
package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/fairyboard/pkg/boarddto"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 7 * 24 * time.Hour
	keyPrefix  = "fairyboard:"
)

var ErrNotFound = errors.New("saved game not found")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *Store) keyGame(id string) string { return keyPrefix + "game:" + strings.TrimSpace(id) }
func (s *Store) keyIndex() string         { return keyPrefix + "games" }

// Save stores g under a fresh id when g.ID is empty and returns the stored
// copy.
func (s *Store) Save(ctx context.Context, g boarddto.SavedGame) (boarddto.SavedGame, error) {
	if strings.TrimSpace(g.ID) == "" {
		g.ID = uuid.NewString()
	}
	if g.SavedAt.IsZero() {
		g.SavedAt = s.now().UTC()
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return boarddto.SavedGame{}, fmt.Errorf("marshal game: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyGame(g.ID), raw, s.ttl)
	pipe.ZAdd(ctx, s.keyIndex(), redis.Z{Score: float64(g.SavedAt.UnixMilli()), Member: g.ID})
	pipe.Expire(ctx, s.keyIndex(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return boarddto.SavedGame{}, fmt.Errorf("save game %s: %w", g.ID, err)
	}
	return g, nil
}

func (s *Store) Load(ctx context.Context, id string) (boarddto.SavedGame, error) {
	raw, err := s.rdb.Get(ctx, s.keyGame(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return boarddto.SavedGame{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return boarddto.SavedGame{}, fmt.Errorf("load game %s: %w", id, err)
	}
	var g boarddto.SavedGame
	if err := json.Unmarshal(raw, &g); err != nil {
		return boarddto.SavedGame{}, fmt.Errorf("decode game %s: %w", id, err)
	}
	return g, nil
}

// List returns the most recently saved games first.
// 스냅샷이 만료된 인덱스 항목은 정리한다.
func (s *Store) List(ctx context.Context, limit int) ([]boarddto.SavedGame, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.rdb.ZRevRange(ctx, s.keyIndex(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]boarddto.SavedGame, 0, len(ids))
	for _, id := range ids {
		g, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = s.rdb.ZRem(ctx, s.keyIndex(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyGame(id))
	pipe.ZRem(ctx, s.keyIndex(), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// ParseRedisURL: redis://[:pass@]host[:port][/db] 형식을 클라이언트 옵션으로 변환 (IPv6 호스트 포함).
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("redis port %q: %w", port, err)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: net.JoinHostPort(u.Hostname(), port), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
