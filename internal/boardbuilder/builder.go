package boardbuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/park285/fairyboard/internal/archive"
	"github.com/park285/fairyboard/internal/config"
	"github.com/park285/fairyboard/internal/feed"
	"github.com/park285/fairyboard/internal/httpapi"
	"github.com/park285/fairyboard/internal/msgcat"
	"github.com/park285/fairyboard/internal/orchestrator"
	"github.com/park285/fairyboard/internal/rules"
	"github.com/park285/fairyboard/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Board   *orchestrator.Orchestrator
	Feed    *feed.Hub
	API     *httpapi.Server
	Catalog *msgcat.Catalog
	Store   *store.Store
	Archive archive.Repository

	redis *redis.Client
	db    *sql.DB
}

// Option adjusts the orchestrator config before it is built.
type Option func(*orchestrator.Config)

// WithLauncher replaces the exec-based engine launcher.
func WithLauncher(l orchestrator.Launcher) Option {
	return func(c *orchestrator.Config) { c.Launcher = l }
}

// New wires the board service.
// Redis/Postgres는 선택 사항: REDIS_URL이 없으면 게임 저장 비활성화, DATABASE_URL이 없으면 분석은 메모리에 보관.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, opts ...Option) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Catalog = catalog

	if strings.TrimSpace(cfg.RedisURL) != "" {
		ropts, err := store.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.redis = redis.NewClient(ropts)
		d.Store = store.New(d.redis, cfg.GameTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = d.Store.Ping(pingCtx)
		cancel()
		if err != nil {
			d.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	} else {
		logger.Warn("saved_games_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, repo, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			d.close()
			return nil, err
		}
		d.db, d.Archive = db, repo
	} else {
		d.Archive = archive.NewMemoryRepository()
	}

	d.Feed = feed.NewHub(logger.Named("feed"))
	ocfg := orchestrator.Config{
		Oracle:        rules.NewStandard(),
		Variant:       cfg.DefaultVariant,
		EngineOptions: cfg.EngineOptions,
		EngineDir:     cfg.EngineDir,
		Sink:          d.Feed,
		Archive:       d.Archive,
		Catalog:       catalog,
		Logger:        logger.Named("board"),
	}
	if d.Store != nil {
		ocfg.Store = d.Store
	}
	for _, opt := range opts {
		opt(&ocfg)
	}
	board, err := orchestrator.New(ctx, ocfg)
	if err != nil {
		d.close()
		return nil, fmt.Errorf("init board: %w", err)
	}
	d.Board = board
	d.API = httpapi.New(board, catalog, logger.Named("http"))
	return d, nil
}

// Close quits the engine and releases the feed and store connections.
func (d *Deps) Close(ctx context.Context) error {
	var first error
	if d.Board != nil {
		first = d.Board.Close(ctx)
	}
	if d.Feed != nil {
		if err := d.Feed.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	d.close()
	return first
}

func (d *Deps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}
