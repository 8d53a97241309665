// Package dispatch implements the clipboard watch loop: poll the clipboard,
// skip content already seen, extract text from images, and hand a
// translation job to the worker pool.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.klb.dev/cliplingo/internal/clip"
	"go.klb.dev/cliplingo/internal/fingerprint"
	"go.klb.dev/cliplingo/internal/lang"
	"go.klb.dev/cliplingo/internal/translate"
	"go.klb.dev/cliplingo/internal/worker"
)

// DefaultInterval is the pause between two clipboard polls.
const DefaultInterval = 2 * time.Second

// Clipboard is the part of clip.Backend the loop uses.
type Clipboard interface {
	Read() (clip.Payload, error)
	WriteText(s string) error
}

// Extractor turns an image into text.
type Extractor interface {
	Extract(ctx context.Context, img clip.Image) (string, error)
}

// Reporter receives user-facing progress. console.Printer implements it.
type Reporter interface {
	Detected(kind string)
	Result(source, translated string, copied bool)
	Notice(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the loop settings.
type Config struct {
	Interval  time.Duration
	Target    lang.Code
	WatchText bool
	PrintOnly bool
	Workers   int
	// Timeout bounds a single translation call. 0 means no limit beyond
	// the backend's own.
	Timeout time.Duration
}

// Deps are the loop's collaborators.
type Deps struct {
	Clipboard  Clipboard
	Extractor  Extractor
	Identifier lang.Identifier
	Translator translate.Translator
	Reporter   Reporter
}

// Job is one translation derived from a single clipboard change.
type Job struct {
	Text string
	// Source is filled in by the worker after detection; lang.Auto when
	// detection failed.
	Source      lang.Code
	Target      lang.Code
	Origin      clip.Kind
	Fingerprint fingerprint.Fingerprint
}

// Outcome is the result of one poll.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeIgnored
	OutcomeUnchanged
	OutcomeNoText
	OutcomeDispatched
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeNoText:
		return "no-text"
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeRejected:
		return "rejected"
	}
	return "unknown"
}

// Loop is the watcher state machine. The last seen fingerprint is the only
// state carried between polls.
type Loop struct {
	cfg  Config
	deps Deps
	pool *worker.Pool

	mu   sync.Mutex
	last fingerprint.Fingerprint
	seen bool
}

// New returns a loop. Zero config fields take their defaults.
func New(cfg Config, deps Deps) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Loop{cfg: cfg, deps: deps}
}

// Run polls until ctx is cancelled, then waits for in-flight jobs. It
// returns nil on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	defer l.Wait()

	slog.Info("watching clipboard",
		"interval", l.cfg.Interval,
		"target", l.cfg.Target,
		"text", l.cfg.WatchText,
		"workers", l.cfg.Workers,
		"translator", l.deps.Translator.Name(),
	)

	t := time.NewTicker(l.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("watch loop stopping", "reason", ctx.Err())
			return nil
		case <-t.C:
			l.Poll(ctx)
		}
	}
}

// Wait blocks until every submitted job has finished. The next Poll starts a
// fresh pool. Poll and Wait must be called from the same goroutine.
func (l *Loop) Wait() {
	if l.pool == nil {
		return
	}
	l.pool.Close()
	l.pool = nil
}

// Poll runs a single iteration: read, gate on the fingerprint, extract,
// dispatch. Jobs run with the ctx of the Poll that created the pool.
func (l *Loop) Poll(ctx context.Context) Outcome {
	p, err := l.deps.Clipboard.Read()
	if err != nil {
		slog.Debug("clipboard read failed", "err", err)
		return OutcomeEmpty
	}
	if p.IsEmpty() {
		return OutcomeEmpty
	}
	if p.Kind == clip.KindText && !l.cfg.WatchText {
		return OutcomeIgnored
	}

	fp := fingerprint.Of(p)
	if !l.accept(fp) {
		return OutcomeUnchanged
	}
	logPayload("clipboard changed", p, fp)
	l.deps.Reporter.Detected(p.Kind.String())

	text := p.Text
	if p.Kind == clip.KindImage {
		text, err = l.deps.Extractor.Extract(ctx, p.Image)
		if err != nil {
			slog.Warn("text extraction failed", "fingerprint", fp, "err", err)
			l.deps.Reporter.Warn("No text was extracted from the image: %v", err)
			return OutcomeNoText
		}
		if strings.TrimSpace(text) == "" {
			l.deps.Reporter.Warn("No text was extracted from the image.")
			return OutcomeNoText
		}
	}

	job := Job{
		Text:        strings.TrimSpace(text),
		Target:      l.cfg.Target,
		Origin:      p.Kind,
		Fingerprint: fp,
	}
	if l.pool == nil {
		l.pool = worker.New(ctx, l.cfg.Workers)
	}
	accepted, replaced := l.pool.Submit(func(ctx context.Context) { l.process(ctx, job) })
	if !accepted {
		slog.Debug("job rejected, worker pool closed", "fingerprint", fp)
		return OutcomeRejected
	}
	switch {
	case replaced:
		slog.Info("workers busy, replaced pending job with newer content", "fingerprint", fp)
	case l.pool.Pending():
		slog.Debug("workers busy, job queued", "fingerprint", fp)
	}
	return OutcomeDispatched
}

// process detects the source language, translates and publishes the result.
// A job that starts after shutdown began is dropped.
func (l *Loop) process(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		slog.Debug("shutting down, dropping job", "fingerprint", j.Fingerprint)
		return
	}

	source, err := l.deps.Identifier.Detect(j.Text)
	if err != nil {
		slog.Debug("language detection failed, translator will auto-detect", "err", err)
		source = lang.Auto
	}
	j.Source = source

	var out string
	switch {
	case j.Source == j.Target && j.Origin == clip.KindText:
		slog.Info("text already in target language, skipping", "lang", j.Source, "fingerprint", j.Fingerprint)
		l.deps.Reporter.Notice("Text is already in %s, nothing to translate.", j.Target)
		return
	case j.Source == j.Target:
		out = j.Text
	default:
		start := time.Now()
		out, err = l.translate(ctx, j.Text, j.Source, j.Target)
		if err != nil && ctx.Err() != nil {
			slog.Debug("translation abandoned on shutdown", "err", err)
			return
		}
		if err != nil {
			slog.Error("translation failed",
				"translator", l.deps.Translator.Name(),
				"source", j.Source,
				"target", j.Target,
				"err", err,
			)
			l.deps.Reporter.Error("Failed to translate the text: %v", err)
			return
		}
		slog.Debug("translated",
			"source", j.Source,
			"target", j.Target,
			"took", time.Since(start).Round(time.Millisecond),
		)
	}

	copied := false
	if !l.cfg.PrintOnly {
		copied = l.publish(out)
	}
	l.deps.Reporter.Result(j.Text, out, copied)
}

func (l *Loop) translate(ctx context.Context, text string, source, target lang.Code) (string, error) {
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}
	return l.deps.Translator.Translate(ctx, text, source, target)
}

// publish writes out to the clipboard and marks it as seen so the loop does
// not pick its own write up as a new change.
func (l *Loop) publish(out string) bool {
	fp := fingerprint.OfText(out)
	prev, prevSeen := l.remember(fp)
	if err := l.deps.Clipboard.WriteText(out); err != nil {
		l.restore(fp, prev, prevSeen)
		slog.Error("clipboard write failed", "err", err)
		l.deps.Reporter.Error("Failed to copy the translation to the clipboard: %v", err)
		return false
	}
	return true
}

// accept records fp as last seen and reports whether it differs from the
// previous value. It runs before any processing, so a failing payload is
// never retried until the clipboard changes.
func (l *Loop) accept(fp fingerprint.Fingerprint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen && l.last == fp {
		return false
	}
	l.last, l.seen = fp, true
	return true
}

func (l *Loop) remember(fp fingerprint.Fingerprint) (fingerprint.Fingerprint, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, prevSeen := l.last, l.seen
	l.last, l.seen = fp, true
	return prev, prevSeen
}

// restore undoes remember unless the loop has moved on in between.
func (l *Loop) restore(fp, prev fingerprint.Fingerprint, prevSeen bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == fp {
		l.last, l.seen = prev, prevSeen
	}
}
