package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	appcfg "github.com/park285/fairyboard/internal/config"
	"github.com/park285/fairyboard/internal/msgcat"
	"github.com/park285/fairyboard/internal/uci"
	"github.com/park285/fairyboard/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// enginecheck runs the configured engine on one position and prints its
// analysis for a short window. With FEED_URL set it instead watches a
// running server's analysis feed.
func main() {
	window := 5 * time.Second
	if v := strings.TrimSpace(os.Getenv("CHECK_SECONDS")); v != "" {
		d, err := time.ParseDuration(v + "s")
		if err != nil {
			log.Fatalf("CHECK_SECONDS: %v", err)
		}
		window = d
	}

	if feedURL := strings.TrimSpace(os.Getenv("FEED_URL")); feedURL != "" {
		watchFeed(feedURL, window)
		return
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.EnginePath == "" {
		log.Fatal("ENGINE_PATH is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), window+10*time.Second)
	defer cancel()
	s, err := uci.Start(ctx, cfg.EnginePath, uci.Options(cfg.EngineOptions), zap.NewNop())
	if err != nil {
		log.Fatalf("engine start: %v", err)
	}
	defer func() { _ = s.Quit(context.Background()) }()

	fen := strings.TrimSpace(os.Getenv("CHECK_FEN"))
	if err := s.SetOption("UCI_Variant", cfg.DefaultVariant); err != nil {
		log.Fatalf("setoption: %v", err)
	}
	if err := s.Position(fen, nil); err != nil {
		log.Fatalf("position: %v", err)
	}
	if err := s.Analyze(); err != nil {
		log.Fatalf("go: %v", err)
	}

	catalog := msgcat.MustDefault()
	table := uci.NewMultiPV()
	timer := time.NewTimer(window)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			_ = s.Stop()
			id := s.Identity()
			if header, err := catalog.Render("engine.loaded", id); err == nil {
				fmt.Println(header)
			}
			for _, info := range table.Snapshot() {
				fmt.Printf("%d: %s\n", info.Index(), catalog.AnalysisLine(info))
			}
			return
		case line, ok := <-s.Lines():
			if !ok {
				log.Printf("engine exited early")
				return
			}
			if info, ok := uci.ProcessLine(line); ok {
				table.Update(info)
			}
		}
	}
}

func watchFeed(url string, window time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		log.Fatalf("feed connect error: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	for {
		var a boarddto.Analysis
		if err := wsjson.Read(ctx, conn, &a); err != nil {
			return
		}
		for _, l := range a.Lines {
			fmt.Printf("[%s] %d: %s\n", a.EngineName, l.MultiPV, l.Text)
		}
	}
}
