// Package httpapi exposes the board controls as a JSON API over fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/park285/fairyboard/internal/msgcat"
	"github.com/park285/fairyboard/internal/orchestrator"
	"github.com/park285/fairyboard/pkg/boarddto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	requestTimeout   = 10 * time.Second
)

// Board is the orchestrator surface the handlers drive.
type Board interface {
	Snapshot() boarddto.State
	Variants() []string
	Variant() string
	Click(ctx context.Context, square string) (orchestrator.Result, error)
	ForceMove(ctx context.Context) (orchestrator.Result, error)
	Choose(ctx context.Context, move string) (orchestrator.Result, error)
	Push(ctx context.Context, move string) error
	Undo(ctx context.Context) error
	Reset(ctx context.Context) error
	NewVariant(ctx context.Context, variant string) error
	SetFEN(ctx context.Context, fen string) error
	LoadEngine(ctx context.Context, path string) error
	ToggleEngine(ctx context.Context) (bool, error)
	SetEngineOptions(ctx context.Context, opts map[string]string) error
	LoadVariants(ctx context.Context, path string) error
	SaveGame(ctx context.Context, name string) (boarddto.SavedGame, error)
	LoadGame(ctx context.Context, id string) error
	ListGames(ctx context.Context, limit int) ([]boarddto.SavedGame, error)
	History(ctx context.Context, limit int) ([]boarddto.ArchivedAnalysis, error)
}

type Server struct {
	board   Board
	catalog *msgcat.Catalog
	logger  *zap.Logger
	routes  map[string]fasthttp.RequestHandler
}

func New(board Board, catalog *msgcat.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	s := &Server{board: board, catalog: catalog, logger: logger}
	s.routes = map[string]fasthttp.RequestHandler{
		"GET /healthz":         s.healthz,
		"GET /state":           s.state,
		"GET /variants":        s.variants,
		"GET /games":           s.listGames,
		"GET /archive":         s.history,
		"POST /select":         s.selectSquare,
		"POST /move":           s.move,
		"POST /choose":         s.choose,
		"POST /undo":           s.undo,
		"POST /reset":          s.reset,
		"POST /newgame":        s.newGame,
		"POST /fen":            s.setFEN,
		"POST /engine":         s.loadEngine,
		"POST /engine/toggle":  s.toggleEngine,
		"POST /engine/options": s.engineOptions,
		"POST /variants/load":  s.loadVariants,
		"POST /games":          s.saveGame,
		"POST /games/load":     s.loadGame,
	}
	return s
}

// Handler routes on "METHOD /path".
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key := string(ctx.Method()) + " " + string(ctx.Path())
		h, ok := s.routes[key]
		if !ok {
			s.writeError(ctx, fasthttp.StatusNotFound, "not_found", string(ctx.Path()))
			return
		}
		start := time.Now()
		h(ctx)
		s.logger.Debug("http_request",
			zap.String("route", key),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) healthz(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state(ctx *fasthttp.RequestCtx) {
	st := s.board.Snapshot()
	s.writeJSON(ctx, fasthttp.StatusOK, st)
}

func (s *Server) variants(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, fasthttp.StatusOK, boarddto.VariantsResponse{
		Variants: s.board.Variants(),
		Current:  s.board.Variant(),
	})
}

func (s *Server) listGames(ctx *fasthttp.RequestCtx) {
	c, cancel := requestContext(ctx)
	defer cancel()
	games, err := s.board.ListGames(c, queryLimit(ctx))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if games == nil {
		games = []boarddto.SavedGame{}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, boarddto.GameList{Games: games})
}

func (s *Server) history(ctx *fasthttp.RequestCtx) {
	c, cancel := requestContext(ctx)
	defer cancel()
	items, err := s.board.History(c, queryLimit(ctx))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, items)
}

func (s *Server) selectSquare(ctx *fasthttp.RequestCtx) {
	var req boarddto.SelectRequest
	if !s.decode(ctx, &req) {
		return
	}
	if req.Square == "" {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", "square is required")
		return
	}
	c, cancel := requestContext(ctx)
	defer cancel()
	res, err := s.board.Click(c, req.Square)
	s.writeResult(ctx, res, err)
}

// move plays the given move, or resolves the current selection when the
// body names none.
func (s *Server) move(ctx *fasthttp.RequestCtx) {
	var req boarddto.MoveRequest
	if len(ctx.PostBody()) > 0 && !s.decode(ctx, &req) {
		return
	}
	c, cancel := requestContext(ctx)
	defer cancel()
	if req.Move == "" {
		res, err := s.board.ForceMove(c)
		s.writeResult(ctx, res, err)
		return
	}
	if err := s.board.Push(c, req.Move); err != nil {
		s.fail(ctx, err)
		return
	}
	st := s.board.Snapshot()
	s.writeJSON(ctx, fasthttp.StatusOK, boarddto.SelectResult{Outcome: "unique", Played: req.Move, State: &st})
}

func (s *Server) choose(ctx *fasthttp.RequestCtx) {
	var req boarddto.ChooseRequest
	if !s.decode(ctx, &req) {
		return
	}
	c, cancel := requestContext(ctx)
	defer cancel()
	res, err := s.board.Choose(c, req.Move)
	s.writeResult(ctx, res, err)
}

func (s *Server) undo(ctx *fasthttp.RequestCtx) {
	s.mutate(ctx, s.board.Undo)
}

func (s *Server) reset(ctx *fasthttp.RequestCtx) {
	s.mutate(ctx, s.board.Reset)
}

func (s *Server) newGame(ctx *fasthttp.RequestCtx) {
	var req boarddto.NewGameRequest
	if !s.decode(ctx, &req) {
		return
	}
	s.mutate(ctx, func(c context.Context) error { return s.board.NewVariant(c, req.Variant) })
}

func (s *Server) setFEN(ctx *fasthttp.RequestCtx) {
	var req boarddto.FENRequest
	if !s.decode(ctx, &req) {
		return
	}
	s.mutate(ctx, func(c context.Context) error { return s.board.SetFEN(c, req.FEN) })
}

func (s *Server) loadEngine(ctx *fasthttp.RequestCtx) {
	var req boarddto.EngineRequest
	if !s.decode(ctx, &req) {
		return
	}
	s.mutate(ctx, func(c context.Context) error { return s.board.LoadEngine(c, req.Path) })
}

func (s *Server) toggleEngine(ctx *fasthttp.RequestCtx) {
	c, cancel := requestContext(ctx)
	defer cancel()
	paused, err := s.board.ToggleEngine(c)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, boarddto.ToggleResponse{Paused: paused})
}

func (s *Server) engineOptions(ctx *fasthttp.RequestCtx) {
	var req boarddto.EngineOptionsRequest
	if !s.decode(ctx, &req) {
		return
	}
	s.mutate(ctx, func(c context.Context) error { return s.board.SetEngineOptions(c, req.Options) })
}

func (s *Server) loadVariants(ctx *fasthttp.RequestCtx) {
	var req boarddto.VariantsLoadRequest
	if !s.decode(ctx, &req) {
		return
	}
	s.mutate(ctx, func(c context.Context) error { return s.board.LoadVariants(c, req.Path) })
}

func (s *Server) saveGame(ctx *fasthttp.RequestCtx) {
	var req boarddto.SaveGameRequest
	if len(ctx.PostBody()) > 0 && !s.decode(ctx, &req) {
		return
	}
	c, cancel := requestContext(ctx)
	defer cancel()
	g, err := s.board.SaveGame(c, req.Name)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusCreated, g)
}

func (s *Server) loadGame(ctx *fasthttp.RequestCtx) {
	var req boarddto.LoadGameRequest
	if !s.decode(ctx, &req) {
		return
	}
	s.mutate(ctx, func(c context.Context) error { return s.board.LoadGame(c, req.ID) })
}

// mutate는 fn 실행 후 변경된 보드 상태로 응답.
func (s *Server) mutate(ctx *fasthttp.RequestCtx, fn func(context.Context) error) {
	c, cancel := requestContext(ctx)
	defer cancel()
	if err := fn(c); err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, s.board.Snapshot())
}

func (s *Server) writeResult(ctx *fasthttp.RequestCtx, res orchestrator.Result, err error) {
	if err != nil {
		s.fail(ctx, err)
		return
	}
	st := s.board.Snapshot()
	out := boarddto.SelectResult{
		Outcome:    res.Outcome.Kind.String(),
		Played:     res.Played,
		Candidates: res.Outcome.Candidates,
		Highlights: boarddto.Highlights{
			Selected:     res.Outcome.Highlights.Selected,
			Destinations: res.Outcome.Highlights.Destinations,
			Origins:      res.Outcome.Highlights.Origins,
			Gating:       res.Outcome.Highlights.Gating,
		},
		State: &st,
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) decode(ctx *fasthttp.RequestCtx, v any) bool {
	if err := json.Unmarshal(ctx.PostBody(), v); err != nil {
		s.writeError(ctx, fasthttp.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	return true
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	status, code := classify(err)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("http_request_failed", zap.String("path", string(ctx.Path())), zap.Error(err))
	}
	s.writeError(ctx, status, code, err.Error())
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, code, detail string) {
	s.writeJSON(ctx, status, boarddto.DomainError{
		Code:      code,
		Message:   s.catalog.ErrorText(code, detail),
		Retryable: status == fasthttp.StatusServiceUnavailable,
	})
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

func requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}

func queryLimit(ctx *fasthttp.RequestCtx) int {
	if n, err := strconv.Atoi(string(ctx.QueryArgs().Peek("limit"))); err == nil && n > 0 {
		return n
	}
	return defaultListLimit
}

// Listen serves h on addr until ctx is cancelled.
func Listen(ctx context.Context, addr string, h fasthttp.RequestHandler, logger *zap.Logger) error {
	srv := &fasthttp.Server{
		Handler:      h,
		Name:         "fairyboard",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()
	logger.Info("http_listening", zap.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
