package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/fairyboard/internal/orchestrator"
	"github.com/park285/fairyboard/internal/rules"
	"github.com/park285/fairyboard/internal/store"
	"github.com/park285/fairyboard/internal/uci"
	"github.com/park285/fairyboard/pkg/boarddto"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func newServer(t *testing.T, mutate func(*orchestrator.Config)) *Server {
	t.Helper()
	cfg := orchestrator.Config{
		Oracle: rules.NewStandard(),
		Launcher: func(context.Context, string, uci.Options, *zap.Logger) (orchestrator.Engine, error) {
			return nil, errors.New("exec: no such engine")
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	o, err := orchestrator.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(func() { _ = o.Close(context.Background()) })
	return New(o, nil, nil)
}

func do(t *testing.T, s *Server, method, uri, body string) (int, []byte) {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.SetBodyString(body)
	}
	// Init attaches the server the context's Done channel comes from; a
	// zero RequestCtx panics as soon as a handler derives a context from it.
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.Handler()(&ctx)
	return ctx.Response.StatusCode(), append([]byte(nil), ctx.Response.Body()...)
}

func decodeInto(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func TestRequestContextHasDeadline(t *testing.T) {
	var req fasthttp.Request
	var rc fasthttp.RequestCtx
	rc.Init(&req, nil, nil)

	c, cancel := requestContext(&rc)
	defer cancel()
	deadline, ok := c.Deadline()
	if !ok || time.Until(deadline) > requestTimeout {
		t.Fatalf("deadline = %v, %v", deadline, ok)
	}
	select {
	case <-c.Done():
		t.Fatalf("request context done early: %v", c.Err())
	default:
	}
	cancel()
	if !errors.Is(c.Err(), context.Canceled) {
		t.Fatalf("err after cancel = %v", c.Err())
	}
}

func TestStateAndVariants(t *testing.T) {
	s := newServer(t, nil)
	code, body := do(t, s, "GET", "/state", "")
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	var st boarddto.State
	decodeInto(t, body, &st)
	if st.Variant != "chess" || st.Files != 8 || st.SideToMove != "white" || len(st.LegalMoves) != 20 {
		t.Fatalf("state = %+v", st)
	}

	code, body = do(t, s, "GET", "/variants", "")
	var vr boarddto.VariantsResponse
	decodeInto(t, body, &vr)
	if code != 200 || vr.Current != "chess" || len(vr.Variants) == 0 {
		t.Fatalf("variants = %d %+v", code, vr)
	}

	if code, _ := do(t, s, "GET", "/healthz", ""); code != 200 {
		t.Fatalf("healthz = %d", code)
	}
}

func TestSelectTwoClicksPlaysMove(t *testing.T) {
	s := newServer(t, nil)
	code, body := do(t, s, "POST", "/select", `{"square":"e2"}`)
	var res boarddto.SelectResult
	decodeInto(t, body, &res)
	if code != 200 || res.Outcome != "partial" || len(res.Highlights.Destinations) != 2 {
		t.Fatalf("first click = %d %+v", code, res)
	}

	_, body = do(t, s, "POST", "/select", `{"square":"e4"}`)
	res = boarddto.SelectResult{}
	decodeInto(t, body, &res)
	if res.Outcome != "unique" || res.Played != "e2e4" || res.State == nil || len(res.State.Moves) != 1 {
		t.Fatalf("second click = %+v", res)
	}
}

func TestMoveAndUndo(t *testing.T) {
	s := newServer(t, nil)
	code, body := do(t, s, "POST", "/move", `{"move":"g1f3"}`)
	var res boarddto.SelectResult
	decodeInto(t, body, &res)
	if code != 200 || res.Played != "g1f3" || res.State.SideToMove != "black" {
		t.Fatalf("move = %d %+v", code, res)
	}

	code, body = do(t, s, "POST", "/move", `{"move":"e2e5"}`)
	var derr boarddto.DomainError
	decodeInto(t, body, &derr)
	if code != 422 || derr.Code != "illegal_move" || derr.Message == "" {
		t.Fatalf("illegal move = %d %+v", code, derr)
	}

	if code, _ := do(t, s, "POST", "/undo", ""); code != 200 {
		t.Fatalf("undo = %d", code)
	}
	code, body = do(t, s, "POST", "/undo", "")
	derr = boarddto.DomainError{}
	decodeInto(t, body, &derr)
	if code != 409 || derr.Code != "nothing_to_undo" {
		t.Fatalf("second undo = %d %+v", code, derr)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t, nil)
	cases := []struct {
		method, uri, body string
		status            int
		code              string
	}{
		{"POST", "/fen", `{"fen":"not a fen"}`, 400, "invalid_fen"},
		{"POST", "/newgame", `{"variant":"xiangqi"}`, 400, "unknown_variant"},
		{"POST", "/choose", `{"move":"e7e8q"}`, 409, "not_pending"},
		{"POST", "/engine/toggle", "", 409, "no_engine"},
		{"POST", "/engine", `{"path":"/nowhere/engine"}`, 502, "engine_failed"},
		{"POST", "/engine/options", `{"options":{"Threads":"zero"}}`, 400, "invalid_option"},
		{"POST", "/games", `{"name":"x"}`, 503, "store_unavailable"},
		{"POST", "/variants/load", `{"path":"/nowhere/variants.ini"}`, 404, "not_found"},
		{"POST", "/select", `{bad json`, 400, "bad_request"},
		{"GET", "/nope", "", 404, "not_found"},
		{"DELETE", "/state", "", 404, "not_found"},
	}
	for _, tc := range cases {
		code, body := do(t, s, tc.method, tc.uri, tc.body)
		var derr boarddto.DomainError
		decodeInto(t, body, &derr)
		if code != tc.status || derr.Code != tc.code {
			t.Fatalf("%s %s = %d %+v, want %d %s", tc.method, tc.uri, code, derr, tc.status, tc.code)
		}
	}
}

func TestEngineDirForbidsOutsidePaths(t *testing.T) {
	s := newServer(t, func(c *orchestrator.Config) { c.EngineDir = t.TempDir() })
	for _, uri := range []string{"/engine", "/variants/load"} {
		code, body := do(t, s, "POST", uri, `{"path":"/bin/sh"}`)
		var derr boarddto.DomainError
		decodeInto(t, body, &derr)
		if code != 403 || derr.Code != "path_not_allowed" {
			t.Fatalf("%s = %d %+v", uri, code, derr)
		}
	}
}

func TestSaveListLoadGames(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s := newServer(t, func(c *orchestrator.Config) { c.Store = store.New(rdb, time.Hour) })

	do(t, s, "POST", "/move", `{"move":"d2d4"}`)
	code, body := do(t, s, "POST", "/games", `{"name":"queen pawn"}`)
	var saved boarddto.SavedGame
	decodeInto(t, body, &saved)
	if code != 201 || saved.ID == "" || saved.Name != "queen pawn" {
		t.Fatalf("save = %d %+v", code, saved)
	}

	_, body = do(t, s, "GET", "/games?limit=5", "")
	var list boarddto.GameList
	decodeInto(t, body, &list)
	if len(list.Games) != 1 || list.Games[0].ID != saved.ID {
		t.Fatalf("list = %+v", list)
	}

	do(t, s, "POST", "/reset", "")
	code, body = do(t, s, "POST", "/games/load", `{"id":"`+saved.ID+`"}`)
	var st boarddto.State
	decodeInto(t, body, &st)
	if code != 200 || len(st.Moves) != 1 || st.Moves[0] != "d2d4" {
		t.Fatalf("load = %d %+v", code, st)
	}

	code, body = do(t, s, "POST", "/games/load", `{"id":"missing"}`)
	var derr boarddto.DomainError
	decodeInto(t, body, &derr)
	if code != 404 || derr.Code != "not_found" {
		t.Fatalf("load missing = %d %+v", code, derr)
	}
}
