package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.klb.dev/cliplingo/internal/lang"
	"go.klb.dev/cliplingo/internal/message"
	"go.klb.dev/cliplingo/internal/wire"
)

const (
	localName = "local"

	// ManifestFile describes a model directory.
	ManifestFile = "model.json"

	defaultReadyTimeout = 2 * time.Minute
	shutdownGrace       = 5 * time.Second
)

var (
	weightFiles    = []string{"model.bin", "pytorch_model.bin", "*.safetensors"}
	tokenizerFiles = []string{"sentencepiece.bpe.model", "source.spm", "tokenizer.json"}
)

// Manifest is the model.json file shipped with a model directory.
//
//	{"name": "nllb-200-distilled-600M", "target": "en", "tag_style": "nllb",
//	 "runner": ["ct2-runner", "--device", "cpu"]}
type Manifest struct {
	Name     string   `json:"name"`
	Target   string   `json:"target"`
	TagStyle string   `json:"tag_style"`
	Runner   []string `json:"runner"`
}

// LocalConfig configures the local model backend.
type LocalConfig struct {
	// ModelDir holds the manifest, weights and tokenizer.
	ModelDir string
	// Runner overrides the manifest runner command. The model directory is
	// appended as the last argument.
	Runner []string
	// ReadyTimeout bounds model loading. 0 uses two minutes.
	ReadyTimeout time.Duration
	// Stderr receives the runner's diagnostics. nil uses os.Stderr.
	Stderr io.Writer
	// Guesser picks a source language when Translate is called with
	// lang.Auto. nil uses whatlanggo's best guess without a confidence gate.
	Guesser lang.Identifier
}

// Local translates with a model loaded once, at startup, by a runner
// process. The model translates into a single fixed target language.
type Local struct {
	name    string
	target  lang.Code
	style   TagStyle
	guesser lang.Identifier

	cmd  *exec.Cmd
	conn *wire.Conn

	// mu serializes requests: one model instance serves one call at a time.
	mu      sync.Mutex
	nextID  uint64
	results chan *message.Message

	exited  chan struct{}
	exitErr error
}

// CheckModelDir validates a model directory and returns its manifest. A
// missing manifest, weights or tokenizer is an error.
func CheckModelDir(dir string) (Manifest, error) {
	var m Manifest
	if dir == "" {
		return m, errors.New("model directory not set")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return m, fmt.Errorf("model directory: %w", err)
	}
	if !st.IsDir() {
		return m, fmt.Errorf("model directory: %s is not a directory", dir)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, fmt.Errorf("model manifest: %w", err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("model manifest %s: %w", ManifestFile, err)
	}
	if _, err := lang.Parse(m.Target); err != nil || m.Target == "" {
		return m, fmt.Errorf("model manifest: invalid target %q", m.Target)
	}
	if _, ok := ParseTagStyle(m.TagStyle); !ok {
		return m, fmt.Errorf("model manifest: unknown tag_style %q", m.TagStyle)
	}

	if !anyExists(dir, weightFiles) {
		return m, fmt.Errorf("model weights not found in %s (want one of %v)", dir, weightFiles)
	}
	if !anyExists(dir, tokenizerFiles) {
		return m, fmt.Errorf("tokenizer not found in %s (want one of %v)", dir, tokenizerFiles)
	}
	return m, nil
}

func anyExists(dir string, patterns []string) bool {
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

// LoadLocal validates the model directory, starts the runner and waits until
// it reports the model loaded. Every error is a startup failure.
func LoadLocal(ctx context.Context, cfg LocalConfig) (*Local, error) {
	m, err := CheckModelDir(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	target, _ := lang.Parse(m.Target)
	style, _ := ParseTagStyle(m.TagStyle)

	argv := cfg.Runner
	if len(argv) == 0 {
		argv = m.Runner
	}
	if len(argv) == 0 {
		return nil, errors.New("no model runner configured (set runner in model.json or --model-runner)")
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Guesser == nil {
		cfg.Guesser = &lang.Whatlang{}
	}

	args := append(append([]string{}, argv[1:]...), cfg.ModelDir)
	cmd := exec.Command(argv[0], args...)
	cmd.Stderr = cfg.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("runner stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start model runner %q: %w", argv[0], err)
	}

	l := &Local{
		name:    m.Name,
		target:  target,
		style:   style,
		guesser: cfg.Guesser,
		cmd:     cmd,
		conn:    wire.New(stdout, stdin),
		results: make(chan *message.Message, 1),
		exited:  make(chan struct{}),
	}
	if l.name == "" {
		l.name = filepath.Base(cfg.ModelDir)
	}

	go func() {
		l.exitErr = cmd.Wait()
		close(l.exited)
	}()

	if err := l.awaitReady(ctx, cfg.ReadyTimeout); err != nil {
		l.kill()
		return nil, err
	}
	go l.readLoop()

	slog.Info("local model loaded", "model", l.name, "target", l.target, "tag_style", l.style)
	return l, nil
}

func (l *Local) awaitReady(ctx context.Context, timeout time.Duration) error {
	type readyResult struct {
		model string
		err   error
	}
	ready := make(chan readyResult, 1)
	go func() {
		msg, err := l.readMsg()
		switch {
		case err != nil:
			ready <- readyResult{err: fmt.Errorf("model runner exited before ready: %w", err)}
		case msg.Type == message.TypeError:
			ready <- readyResult{err: fmt.Errorf("model runner failed to load model: %s", msg.Error)}
		case msg.Type != message.TypeReady:
			ready <- readyResult{err: fmt.Errorf("model runner sent %s before READY", msg.Type)}
		default:
			ready <- readyResult{model: msg.Model}
		}
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case r := <-ready:
		if r.model != "" {
			l.name = r.model
		}
		return r.err
	case <-t.C:
		return fmt.Errorf("model runner not ready after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readMsg returns the next runner message, skipping lines that are not
// messages.
func (l *Local) readMsg() (*message.Message, error) {
	for {
		msg, err := l.conn.ReadMsg()
		if errors.Is(err, message.ErrMalformed) {
			slog.Warn("model runner wrote a non-protocol line", "model", l.name, "err", err)
			continue
		}
		return msg, err
	}
}

// readLoop forwards runner replies until the pipe closes.
func (l *Local) readLoop() {
	defer close(l.results)
	for {
		msg, err := l.readMsg()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("model runner read failed", "err", err)
			}
			return
		}
		l.results <- msg
	}
}

func (l *Local) Name() string { return localName + ":" + l.name }

// Target returns the fixed target language of the loaded model.
func (l *Local) Target() lang.Code { return l.target }

func (l *Local) Translate(ctx context.Context, text string, source, target lang.Code) (string, error) {
	if target != l.target {
		return "", fail(localName, ErrUnsupported, "model %s only translates into %s, not %s", l.name, l.target, target)
	}

	if source.IsAuto() {
		source = l.guess(text)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	req := &message.Message{
		Type:   message.TypeTranslate,
		ID:     id,
		Text:   text,
		Source: l.style.Tag(source),
		Target: l.style.Tag(l.target),
	}
	if err := l.conn.WriteMsg(req); err != nil {
		return "", fail(localName, ErrBackend, "send request: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", fail(localName, ErrBackend, "%v", ctx.Err())
		case msg, ok := <-l.results:
			if !ok {
				return "", fail(localName, ErrBackend, "model runner exited: %v", l.exitStatus())
			}
			if msg.ID != id {
				// Reply to a request abandoned by its caller.
				continue
			}
			if msg.Type == message.TypeError {
				return "", fail(localName, ErrBackend, "%s", msg.Error)
			}
			if msg.Text == "" {
				return "", fail(localName, ErrEmptyResult, "request %d", id)
			}
			return msg.Text, nil
		}
	}
}

// guess returns a source language for text, or lang.Auto when even a best
// guess is impossible. The request then carries no source tag.
func (l *Local) guess(text string) lang.Code {
	code, err := l.guesser.Detect(text)
	if err != nil {
		slog.Debug("no source language guess, sending untagged request", "model", l.name, "err", err)
		return lang.Auto
	}
	return code
}

// Close asks the runner to exit and waits for it, killing it after a grace
// period.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.conn.WriteMsg(&message.Message{Type: message.TypeShutdown})
	_ = l.conn.Close()

	select {
	case <-l.exited:
	case <-time.After(shutdownGrace):
		l.kill()
	}
	return nil
}

// exitStatus returns the runner's exit error once its output has closed.
func (l *Local) exitStatus() error {
	select {
	case <-l.exited:
		return l.exitErr
	case <-time.After(shutdownGrace):
		return errors.New("output closed")
	}
}

func (l *Local) kill() {
	if l.cmd.Process != nil {
		_ = l.cmd.Process.Kill()
	}
	<-l.exited
}
