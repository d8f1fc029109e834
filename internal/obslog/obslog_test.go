package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "bogus")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_TO_CONSOLE", "")
	opts := OptionsFromEnv()
	if opts.Level != zapcore.DebugLevel || opts.Format != "legacy" || opts.ToFile || !opts.Console {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.FilePath != filepath.Join("logs", "fairyboard.log") {
		t.Fatalf("default file = %q", opts.FilePath)
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	l, err := New(Options{Level: zapcore.InfoLevel, Format: "json", ToFile: true, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("hidden")
	l.Info("engine_start", zap.String("path", "/usr/bin/engine"))
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"msg":"engine_start"`) || strings.Contains(out, "hidden") {
		t.Fatalf("log output = %s", out)
	}
}

func TestReplace(t *testing.T) {
	l := zap.NewExample()
	restore := Replace(l)
	if L() != l {
		t.Fatalf("global logger not replaced")
	}
	restore()
	if L() == l {
		t.Fatalf("global logger not restored")
	}
}
