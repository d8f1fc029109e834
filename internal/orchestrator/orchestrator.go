// Package orchestrator ties the edited game, the click selector and the
// running engine together. Every position change is bracketed so a
// searching engine is stopped, sent the new position and resumed.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/fairyboard/internal/archive"
	"github.com/park285/fairyboard/internal/game"
	"github.com/park285/fairyboard/internal/msgcat"
	"github.com/park285/fairyboard/internal/rules"
	"github.com/park285/fairyboard/internal/selection"
	"github.com/park285/fairyboard/internal/uci"
	"github.com/park285/fairyboard/pkg/boarddto"
	"go.uber.org/zap"
)

var (
	ErrIllegalMove      = rules.ErrIllegalMove
	ErrNothingToUndo    = game.ErrNothingToUndo
	ErrNoEngine         = errors.New("no engine loaded")
	ErrNotPending       = errors.New("no ambiguous move pending")
	ErrInvalidOption    = errors.New("invalid engine option")
	ErrStoreUnavailable = errors.New("game store not configured")
	ErrEngineFailed     = errors.New("engine failed")
	ErrPathNotAllowed   = errors.New("path outside engine directory")
)

// Engine is the part of a uci.Session the orchestrator drives.
type Engine interface {
	ID() uuid.UUID
	Identity() uci.ID
	Lines() <-chan string
	Paused() bool
	SetOption(name, value string) error
	NewGame() error
	Position(fen string, moves []string) error
	Analyze() error
	Toggle() (bool, error)
	Apply(cmds ...string) error
	Quit(ctx context.Context) error
}

// Launcher starts an engine and completes the handshake with opts.
type Launcher func(ctx context.Context, path string, opts uci.Options, logger *zap.Logger) (Engine, error)

// ExecLauncher runs the engine binary at path.
func ExecLauncher(ctx context.Context, path string, opts uci.Options, logger *zap.Logger) (Engine, error) {
	s, err := uci.Start(ctx, path, opts, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Sink receives every multi-PV update.
type Sink interface {
	Publish(update boarddto.Analysis)
}

// GameStore persists saved games.
type GameStore interface {
	Save(ctx context.Context, g boarddto.SavedGame) (boarddto.SavedGame, error)
	Load(ctx context.Context, id string) (boarddto.SavedGame, error)
	List(ctx context.Context, limit int) ([]boarddto.SavedGame, error)
}

type Config struct {
	Oracle        rules.Oracle
	Variant       string
	EngineOptions map[string]string
	// EngineDir, when set, is the only directory engine binaries and
	// variant files may be loaded from.
	EngineDir string
	Launcher  Launcher
	Sink      Sink
	Archive   archive.Repository
	Store     GameStore
	Catalog   *msgcat.Catalog
	Logger    *zap.Logger
}

// Result is what a click, the move button or a choice produced. Played is
// the move pushed, if any.
type Result struct {
	Outcome selection.Outcome
	Played  string
}

type Orchestrator struct {
	mu       sync.Mutex
	oracle   rules.Oracle
	state    *game.State
	selector *selection.Selector
	options  uci.Options

	launch       Launcher
	engineDir    string
	engine       Engine
	enginePath   string
	consumerDone chan struct{}
	table        *uci.MultiPV

	sink    Sink
	archive archive.Repository
	store   GameStore
	catalog *msgcat.Catalog
	logger  *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds an orchestrator on the start position of cfg.Variant. Engine
// processes live until Close or until ctx is cancelled.
func New(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Oracle == nil {
		return nil, errors.New("nil rules oracle")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	variant := strings.TrimSpace(cfg.Variant)
	if variant == "" {
		variant = rules.VariantChess
	}
	st, err := game.New(cfg.Oracle, variant, "", nil)
	if err != nil {
		return nil, fmt.Errorf("initial game: %w", err)
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	launch := cfg.Launcher
	if launch == nil {
		launch = ExecLauncher
	}
	options := uci.Options{}
	for k, v := range cfg.EngineOptions {
		if strings.TrimSpace(v) != "" {
			options[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	engineDir := ""
	if dir := strings.TrimSpace(cfg.EngineDir); dir != "" {
		if engineDir, err = resolvePath(dir); err != nil {
			return nil, fmt.Errorf("engine dir: %w", err)
		}
	}

	base, cancel := context.WithCancel(ctx)
	return &Orchestrator{
		oracle:    cfg.Oracle,
		state:     st,
		selector:  selection.NewSelector(logger),
		options:   options,
		launch:    launch,
		engineDir: engineDir,
		table:     uci.NewMultiPV(),
		sink:      cfg.Sink,
		archive:   cfg.Archive,
		store:     cfg.Store,
		catalog:   catalog,
		logger:    logger,
		baseCtx:   base,
		cancel:    cancel,
	}, nil
}

// resolvePath returns the absolute form of path with symlinks followed
// as far as they exist.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// allowPath rejects paths that leave the configured engine directory.
func (o *Orchestrator) allowPath(path string) error {
	if o.engineDir == "" {
		return nil
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}
	rel, err := filepath.Rel(o.engineDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}
	return nil
}

// mutateLocked archives the outgoing analysis, lets fn replace or edit the
// game and sends the returned commands to the engine. A searching engine
// is stopped around the commands and resumed; a stopped one stays stopped.
func (o *Orchestrator) mutateLocked(ctx context.Context, event string, fn func() ([]string, error)) error {
	rec := o.archiveRecordLocked()
	cmds, err := fn()
	if err != nil {
		return err
	}
	if rec != nil {
		if err := o.archive.Insert(ctx, rec); err != nil {
			o.logger.Warn("archive_insert_failed", zap.Error(err))
		}
	}
	o.selector.Reset()
	if err := o.state.UpdatePockets(); err != nil {
		o.logger.Warn("pockets_update_failed", zap.Error(err))
	}
	o.table.Reset()
	if o.engine != nil {
		if err := o.engine.Apply(cmds...); err != nil {
			o.logger.Warn("engine_update_failed", zap.String("event", event), zap.Error(err))
		}
	}
	o.logger.Info(event,
		zap.String("variant", o.state.Variant()),
		zap.Int("ply", len(o.state.Moves())),
	)
	return nil
}

func (o *Orchestrator) NewVariant(ctx context.Context, variant string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newVariantLocked(ctx, strings.TrimSpace(variant))
}

// Reset restarts the current variant from its initial position.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.newVariantLocked(ctx, o.state.Variant())
}

func (o *Orchestrator) newVariantLocked(ctx context.Context, variant string) error {
	return o.mutateLocked(ctx, "variant_changed", func() ([]string, error) {
		st, err := game.New(o.oracle, variant, "", nil)
		if err != nil {
			return nil, err
		}
		o.state = st
		return []string{
			uci.SetOptionCommand("UCI_Variant", variant),
			uci.NewGameCommand,
			uci.PositionCommand("", nil),
		}, nil
	})
}

// SetFEN starts a game of the current variant from fen.
func (o *Orchestrator) SetFEN(ctx context.Context, fen string) error {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return fmt.Errorf("%w: empty fen", rules.ErrInvalidFEN)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mutateLocked(ctx, "fen_set", func() ([]string, error) {
		st, err := game.New(o.oracle, o.state.Variant(), fen, nil)
		if err != nil {
			return nil, err
		}
		o.state = st
		return []string{uci.PositionCommand(fen, nil)}, nil
	})
}

// Push plays move if it is legal in the current position.
func (o *Orchestrator) Push(ctx context.Context, move string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pushLocked(ctx, strings.TrimSpace(move))
}

func (o *Orchestrator) pushLocked(ctx context.Context, move string) error {
	return o.mutateLocked(ctx, "move_pushed", func() ([]string, error) {
		if !o.state.IsLegal(move) {
			return nil, fmt.Errorf("%w: %s", ErrIllegalMove, move)
		}
		o.state.Push(move)
		return []string{uci.PositionCommand(o.state.StartFEN(), o.state.Moves())}, nil
	})
}

func (o *Orchestrator) Undo(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mutateLocked(ctx, "move_undone", func() ([]string, error) {
		if _, err := o.state.Pop(); err != nil {
			return nil, err
		}
		return []string{uci.PositionCommand(o.state.StartFEN(), o.state.Moves())}, nil
	})
}

// Click feeds one square to the selector and plays the move it resolves.
func (o *Orchestrator) Click(ctx context.Context, square string) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settleLocked(ctx, o.selector.Click(o.state, strings.TrimSpace(square)))
}

// ForceMove resolves the current selection now.
func (o *Orchestrator) ForceMove(ctx context.Context) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settleLocked(ctx, o.selector.Force(o.state))
}

// Choose settles a pending ambiguity. A move that was not offered clears
// the choice and plays nothing.
func (o *Orchestrator) Choose(ctx context.Context, move string) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.selector.Pending()) == 0 {
		return Result{}, ErrNotPending
	}
	out, _ := o.selector.Choose(strings.TrimSpace(move))
	return o.settleLocked(ctx, out)
}

func (o *Orchestrator) settleLocked(ctx context.Context, out selection.Outcome) (Result, error) {
	if out.Kind != selection.Unique {
		return Result{Outcome: out}, nil
	}
	if err := o.pushLocked(ctx, out.Move); err != nil {
		return Result{Outcome: out}, err
	}
	return Result{Outcome: out, Played: out.Move}, nil
}

// LoadEngine replaces the running engine with the binary at path. The old
// session is quit and its reader drained before the new one starts.
func (o *Orchestrator) LoadEngine(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%w: empty engine path", ErrNoEngine)
	}
	if err := o.allowPath(path); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.quitEngineLocked(ctx)

	eng, err := o.launch(o.baseCtx, path, o.options.Clone(), o.logger)
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrEngineFailed, path, err)
	}
	o.engine = eng
	o.enginePath = path
	o.table.Reset()
	done := make(chan struct{})
	o.consumerDone = done
	go o.consume(eng, done)

	steps := []func() error{
		func() error { return eng.SetOption("UCI_Variant", o.state.Variant()) },
		eng.NewGame,
		func() error { return eng.Position(o.state.StartFEN(), o.state.Moves()) },
		eng.Analyze,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("%w: start analysis: %w", ErrEngineFailed, err)
		}
	}
	o.logger.Info("engine_loaded", zap.String("path", path), zap.String("engine_session", eng.ID().String()))
	return nil
}

// quitEngineLocked stops the current engine and waits for its consumer.
func (o *Orchestrator) quitEngineLocked(ctx context.Context) {
	if o.engine == nil {
		return
	}
	if err := o.engine.Quit(ctx); err != nil {
		o.logger.Warn("engine_quit_failed", zap.Error(err))
	}
	if o.consumerDone != nil {
		select {
		case <-o.consumerDone:
		case <-ctx.Done():
			o.logger.Warn("engine_consumer_still_running", zap.Error(ctx.Err()))
		}
	}
	o.engine = nil
	o.enginePath = ""
	o.consumerDone = nil
}

// consume parses engine output until the session's reader ends. Scored
// lines update the multi-PV table and are published in index order.
func (o *Orchestrator) consume(eng Engine, done chan struct{}) {
	defer close(done)
	for line := range eng.Lines() {
		info, ok := uci.ProcessLine(line)
		if !ok || !o.table.Update(info) {
			continue
		}
		if o.sink != nil {
			o.sink.Publish(o.analysis(eng))
		}
	}
}

func (o *Orchestrator) analysis(eng Engine) boarddto.Analysis {
	snap := o.table.Snapshot()
	lines := make([]boarddto.AnalysisLine, 0, len(snap))
	for _, info := range snap {
		lines = append(lines, boarddto.AnalysisLine{
			MultiPV:   info.Index(),
			Depth:     info.Depth,
			Score:     info.Score,
			ScoreText: o.catalog.ScoreText(info),
			PV:        info.PV,
			Text:      o.catalog.AnalysisLine(info),
		})
	}
	return boarddto.Analysis{
		EngineID:   eng.ID().String(),
		EngineName: eng.Identity().Name,
		Lines:      lines,
	}
}

// ToggleEngine pauses or resumes analysis and returns the paused flag.
func (o *Orchestrator) ToggleEngine(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.engine == nil {
		return true, ErrNoEngine
	}
	return o.engine.Toggle()
}

// SetEngineOptions merges opts into the configured options and sends them
// to the running engine. Empty values are ignored; Threads must be a
// positive integer.
func (o *Orchestrator) SetEngineOptions(ctx context.Context, opts map[string]string) error {
	clean := make(map[string]string, len(opts))
	for k, v := range opts {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if k == "Threads" {
			if n, err := strconv.Atoi(v); err != nil || n <= 0 {
				return fmt.Errorf("%w: Threads=%q", ErrInvalidOption, v)
			}
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cmds := make([]string, 0, len(keys))
	for _, k := range keys {
		o.options[k] = clean[k]
		cmds = append(cmds, uci.SetOptionCommand(k, clean[k]))
	}
	if o.engine == nil {
		return nil
	}
	if err := o.engine.Apply(cmds...); err != nil {
		return fmt.Errorf("%w: set options: %w", ErrEngineFailed, err)
	}
	return nil
}

// LoadVariants reads a variant configuration file, hands it to the rules
// oracle and points the engine at it.
func (o *Orchestrator) LoadVariants(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if err := o.allowPath(path); err != nil {
		return err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read variants: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.oracle.LoadVariantConfig(string(text)); err != nil {
		if !errors.Is(err, rules.ErrVariantConfigUnsupported) {
			return fmt.Errorf("load variants: %w", err)
		}
		o.logger.Warn("variant_config_ignored_by_rules", zap.String("path", path), zap.Error(err))
	}
	o.options["VariantPath"] = path
	if o.engine != nil {
		if err := o.engine.SetOption("VariantPath", path); err != nil {
			return fmt.Errorf("%w: set VariantPath: %w", ErrEngineFailed, err)
		}
	}
	return nil
}

func (o *Orchestrator) Variants() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.oracle.Variants()
}

func (o *Orchestrator) Variant() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Variant()
}

// SaveGame stores the current game under name.
func (o *Orchestrator) SaveGame(ctx context.Context, name string) (boarddto.SavedGame, error) {
	if o.store == nil {
		return boarddto.SavedGame{}, ErrStoreUnavailable
	}
	o.mu.Lock()
	g := boarddto.SavedGame{
		Name:     strings.TrimSpace(name),
		Variant:  o.state.Variant(),
		StartFEN: o.state.StartFEN(),
		Moves:    o.state.Moves(),
	}
	if san, err := o.state.SAN(""); err == nil {
		g.SAN = san
	}
	o.mu.Unlock()
	return o.store.Save(ctx, g)
}

// LoadGame replaces the current game with a saved one.
func (o *Orchestrator) LoadGame(ctx context.Context, id string) error {
	if o.store == nil {
		return ErrStoreUnavailable
	}
	g, err := o.store.Load(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mutateLocked(ctx, "game_loaded", func() ([]string, error) {
		st, err := game.New(o.oracle, g.Variant, g.StartFEN, g.Moves)
		if err != nil {
			return nil, err
		}
		o.state = st
		return []string{
			uci.SetOptionCommand("UCI_Variant", g.Variant),
			uci.NewGameCommand,
			uci.PositionCommand(st.StartFEN(), st.Moves()),
		}, nil
	})
}

func (o *Orchestrator) ListGames(ctx context.Context, limit int) ([]boarddto.SavedGame, error) {
	if o.store == nil {
		return nil, ErrStoreUnavailable
	}
	return o.store.List(ctx, limit)
}

// History lists archived analyses of the current position, newest first.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]boarddto.ArchivedAnalysis, error) {
	if o.archive == nil {
		return nil, ErrStoreUnavailable
	}
	o.mu.Lock()
	fen, err := o.state.FEN()
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	recs, err := o.archive.RecentByFEN(ctx, fen, limit)
	if err != nil {
		return nil, fmt.Errorf("archive lookup: %w", err)
	}
	out := make([]boarddto.ArchivedAnalysis, 0, len(recs))
	for _, rec := range recs {
		item := boarddto.ArchivedAnalysis{
			ID:         rec.ID.String(),
			Variant:    rec.Variant,
			FEN:        rec.FEN,
			Moves:      nonNil(rec.Moves),
			PGN:        rec.PGN,
			EngineName: rec.EngineName,
			Lines:      make([]boarddto.AnalysisLine, 0, len(rec.Lines)),
			CreatedAt:  rec.CreatedAt,
		}
		for _, l := range rec.Lines {
			item.Lines = append(item.Lines, boarddto.AnalysisLine{
				MultiPV:   l.MultiPV,
				Depth:     l.Depth,
				Score:     l.Score,
				ScoreText: l.ScoreText,
				PV:        l.PV,
			})
		}
		out = append(out, item)
	}
	return out, nil
}

// Close quits the engine and releases the process context.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quitEngineLocked(ctx)
	o.cancel()
	return nil
}

func (o *Orchestrator) archiveRecordLocked() *archive.Record {
	if o.archive == nil || o.engine == nil {
		return nil
	}
	snap := o.table.Snapshot()
	if len(snap) == 0 {
		return nil
	}
	fen, err := o.state.FEN()
	if err != nil {
		return nil
	}
	rec := &archive.Record{
		Variant:    o.state.Variant(),
		StartFEN:   o.state.StartFEN(),
		FEN:        fen,
		Moves:      o.state.Moves(),
		EngineID:   o.engine.ID().String(),
		EngineName: o.engine.Identity().Name,
	}
	if san, err := o.state.SAN(""); err == nil {
		rec.SAN = san
	}
	for _, info := range snap {
		rec.Lines = append(rec.Lines, archive.Line{
			MultiPV:   info.Index(),
			Depth:     info.Depth,
			Score:     info.Score,
			ScoreText: o.catalog.ScoreText(info),
			PV:        info.PV,
		})
	}
	return rec
}
