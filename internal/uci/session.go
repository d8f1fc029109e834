// Package uci drives an external engine over the UCI text protocol.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxLineBytes    = 1 << 20
	lineBuffer      = 256
	defaultQuitWait = 3 * time.Second
)

var ErrProcessTerminated = errors.New("engine process terminated")

// State is the protocol state of a session.
type State int

const (
	StateIdle State = iota
	StateInitialized
	StateAnalyzing
	StateStopped
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateAnalyzing:
		return "analyzing"
	case StateStopped:
		return "stopped"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options maps UCI option names to values. They are always sent in key
// order.
type Options map[string]string

func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

func (o Options) sortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Session is one running engine. Writes are serialized by a single mutex
// and flushed per command; a reader goroutine delivers raw output lines on
// Lines until the engine closes its output.
type Session struct {
	id     uuid.UUID
	logger *zap.Logger

	mu      sync.Mutex
	w       *bufio.Writer
	stdin   io.Closer
	state   State
	paused  bool
	options Options

	terminated atomic.Bool
	engineID   atomic.Pointer[ID]

	stdout   io.Reader
	lines    chan string
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	wait     func() error
	kill     func() error
}

// NewSession wraps already connected engine streams and starts reading
// stdout. The session is Idle until Initialize.
func NewSession(stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger) *Session {
	s := newSession(stdin, stdout, logger)
	go s.readLoop()
	return s
}

func newSession(stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		id:      uuid.New(),
		w:       bufio.NewWriter(stdin),
		stdin:   stdin,
		paused:  true,
		options: Options{},
		stdout:  stdout,
		lines:   make(chan string, lineBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.logger = logger.With(zap.String("engine_session", s.id.String()))
	if c, ok := stdout.(io.Closer); ok {
		s.kill = c.Close
	}
	return s
}

// Start launches the engine binary, begins reading its output and sends
// the handshake with opts. The process is killed when ctx is cancelled.
func Start(ctx context.Context, path string, opts Options, logger *zap.Logger) (*Session, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("engine path required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}

	cmd := exec.CommandContext(ctx, path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := newSession(stdin, stdout, logger)
	s.wait = cmd.Wait
	s.kill = cmd.Process.Kill
	s.logger.Info("engine_start", zap.String("path", path), zap.Int("pid", cmd.Process.Pid))
	go s.readLoop()

	if err := s.Initialize(opts); err != nil {
		_ = s.Quit(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer func() {
		s.terminated.Store(true)
		if s.wait != nil {
			if err := s.wait(); err != nil {
				s.logger.Debug("engine_exit", zap.Error(err))
			}
		}
	}()
	defer close(s.lines)

	sc := bufio.NewScanner(s.stdout)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		var id ID
		if cur := s.engineID.Load(); cur != nil {
			id = *cur
		}
		if ParseID(line, &id) {
			s.engineID.Store(&id)
		}
		// Quit 이후의 출력은 버린다: Lines를 읽는 쪽이 없어도 리더가 멈추지 않음
		select {
		case s.lines <- line:
		case <-s.quit:
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("engine_read_end", zap.Error(err))
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Lines delivers raw engine output. It is closed when reading ends.
func (s *Session) Lines() <-chan string { return s.lines }

// Done is closed once the reader has finished and the process was reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Identity returns what the engine announced with its id lines.
func (s *Session) Identity() ID {
	if id := s.engineID.Load(); id != nil {
		return *id
	}
	return ID{}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paused reports whether no search is running.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options.Clone()
}

// Initialize sends "uci" followed by every option in a single write.
func (s *Session) Initialize(opts Options) error {
	var sb strings.Builder
	sb.WriteString("uci\n")
	for _, k := range opts.sortedKeys() {
		sb.WriteString(SetOptionCommand(k, opts[k]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(sb.String()); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	for k, v := range opts {
		s.options[k] = v
	}
	s.state = StateInitialized
	s.paused = true
	return nil
}

func (s *Session) SetOption(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(SetOptionCommand(name, value)); err != nil {
		return fmt.Errorf("setoption %s: %w", name, err)
	}
	s.options[name] = value
	return nil
}

func (s *Session) NewGame() error {
	return s.send(NewGameCommand)
}

// Position sets the position to search. An empty fen or "startpos" means
// the variant start position.
func (s *Session) Position(fen string, moves []string) error {
	return s.send(PositionCommand(fen, moves))
}

// Analyze starts an infinite search.
func (s *Session) Analyze() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzeLocked()
}

// Stop ends the running search.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// Toggle stops a running search or resumes a stopped one and returns the
// new paused flag.
func (s *Session) Toggle() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.paused {
		err = s.analyzeLocked()
	} else {
		err = s.stopLocked()
	}
	return s.paused, err
}

// Apply sends cmds as one uninterrupted sequence. A running search is
// stopped first and resumed afterwards; a stopped engine stays stopped.
func (s *Session) Apply(cmds ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resume := !s.paused
	if resume {
		if err := s.stopLocked(); err != nil {
			return err
		}
	}
	for _, c := range cmds {
		if err := s.writeLocked(c); err != nil {
			return err
		}
	}
	if resume {
		return s.analyzeLocked()
	}
	return nil
}

// Quit asks the engine to exit and waits for the reader to finish. If the
// engine is still running when ctx expires it is killed.
func (s *Session) Quit(ctx context.Context) error {
	s.mu.Lock()
	if !s.terminated.Load() {
		if err := s.writeLocked("quit\n"); err != nil {
			s.logger.Debug("engine_quit_write", zap.Error(err))
		}
	}
	s.terminated.Store(true)
	s.state = StateTerminated
	s.paused = true
	_ = s.stdin.Close()
	s.mu.Unlock()
	s.quitOnce.Do(func() { close(s.quit) })

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultQuitWait)
		defer cancel()
	}
	select {
	case <-s.done:
		s.logger.Info("engine_quit")
		return nil
	case <-ctx.Done():
	}
	s.logger.Warn("engine_kill", zap.Error(ctx.Err()))
	if s.kill != nil {
		_ = s.kill()
	}
	<-s.done
	return nil
}

func (s *Session) analyzeLocked() error {
	if err := s.writeLocked("go infinite\n"); err != nil {
		return fmt.Errorf("go: %w", err)
	}
	s.paused = false
	s.state = StateAnalyzing
	return nil
}

func (s *Session) stopLocked() error {
	if err := s.writeLocked("stop\n"); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	s.paused = true
	s.state = StateStopped
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(msg)
}

// writeLocked writes one command and flushes it. The first failure marks
// the session terminated; later writes never reach the pipe.
func (s *Session) writeLocked(msg string) error {
	if s.terminated.Load() {
		return ErrProcessTerminated
	}
	_, err := s.w.WriteString(msg)
	if err == nil {
		err = s.w.Flush()
	}
	if err != nil {
		s.fail(err)
		return fmt.Errorf("%w: %v", ErrProcessTerminated, err)
	}
	return nil
}

func (s *Session) fail(err error) {
	s.terminated.Store(true)
	s.state = StateTerminated
	s.paused = true
	s.logger.Warn("engine_write_failed", zap.Error(err))
}

// SetOptionCommand renders a "setoption" command line.
func SetOptionCommand(name, value string) string {
	return fmt.Sprintf("setoption name %s value %s\n", name, value)
}

// PositionCommand renders a "position" command line.
func PositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(strings.TrimSpace(fen))
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

// NewGameCommand is the "ucinewgame" command line.
const NewGameCommand = "ucinewgame\n"
