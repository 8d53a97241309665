package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/cliplingo/internal/clip"
	"go.klb.dev/cliplingo/internal/lang"
	"go.klb.dev/cliplingo/internal/worker"
)

type fakeClipboard struct {
	mu       sync.Mutex
	payload  clip.Payload
	readErr  error
	writeErr error
	writes   []string
}

func (c *fakeClipboard) Read() (clip.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload, c.readErr
}

func (c *fakeClipboard) WriteText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, s)
	c.payload = clip.TextPayload(s)
	return nil
}

func (c *fakeClipboard) set(p clip.Payload) {
	c.mu.Lock()
	c.payload = p
	c.mu.Unlock()
}

func (c *fakeClipboard) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

type fakeExtractor struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (e *fakeExtractor) Extract(context.Context, clip.Image) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.text, e.err
}

type fakeIdentifier map[string]lang.Code

func (f fakeIdentifier) Detect(text string) (lang.Code, error) {
	if c, ok := f[text]; ok {
		return c, nil
	}
	return "", lang.ErrUndetermined
}

type call struct {
	text           string
	source, target lang.Code
}

type fakeTranslator struct {
	gate  chan struct{}
	mu    sync.Mutex
	out   map[string]string
	err   error
	calls []call
}

func (t *fakeTranslator) Name() string { return "fake" }
func (t *fakeTranslator) Close() error { return nil }

func (t *fakeTranslator) Translate(_ context.Context, text string, source, target lang.Code) (string, error) {
	if t.gate != nil {
		<-t.gate
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call{text, source, target})
	if t.err != nil {
		return "", t.err
	}
	if out, ok := t.out[text]; ok {
		return out, nil
	}
	return strings.ToUpper(text), nil
}

func (t *fakeTranslator) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

type result struct {
	source, translated string
	copied             bool
}

type fakeReporter struct {
	mu       sync.Mutex
	detected []string
	results  []result
	notices  []string
	warnings []string
	errors   []string
}

func (r *fakeReporter) Detected(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detected = append(r.detected, kind)
}

func (r *fakeReporter) Result(source, translated string, copied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result{source, translated, copied})
}

func (r *fakeReporter) Notice(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, fmt.Sprintf(format, args...))
}

func (r *fakeReporter) Warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *fakeReporter) Error(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

type harness struct {
	loop  *Loop
	clip  *fakeClipboard
	ocr   *fakeExtractor
	tr    *fakeTranslator
	rep   *fakeReporter
	ident fakeIdentifier
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		clip: &fakeClipboard{},
		ocr:  &fakeExtractor{},
		tr:   &fakeTranslator{out: map[string]string{}},
		rep:  &fakeReporter{},
		ident: fakeIdentifier{
			"Bonjour le monde": "fr",
			"Hola amigos":      "es",
			"Hello world":      "en",
			"Hello friends":    "en",
		},
	}
	h.loop = New(cfg, Deps{
		Clipboard:  h.clip,
		Extractor:  h.ocr,
		Identifier: h.ident,
		Translator: h.tr,
		Reporter:   h.rep,
	})
	t.Cleanup(h.loop.Wait)
	return h
}

// poll runs one iteration and waits for the job it spawned.
func (h *harness) poll() Outcome {
	o := h.loop.Poll(context.Background())
	h.loop.Wait()
	return o
}

func textConfig() Config {
	return Config{Target: "en", WatchText: true}
}

func testImage() clip.Payload {
	return clip.Payload{
		Kind: clip.KindImage,
		Image: clip.Image{
			Pixels: make([]byte, 4*2*2),
			Width:  2,
			Height: 2,
		},
	}
}

func TestNewDefaults(t *testing.T) {
	l := New(Config{}, Deps{})
	assert.Equal(t, DefaultInterval, l.cfg.Interval)
	assert.Equal(t, lang.Code("en"), l.cfg.Target)
	assert.Equal(t, 1, l.cfg.Workers)
}

func TestPollEmptyClipboard(t *testing.T) {
	h := newHarness(t, textConfig())
	assert.Equal(t, OutcomeEmpty, h.poll())
	assert.Empty(t, h.rep.detected)
}

func TestPollReadErrorIsTreatedAsEmpty(t *testing.T) {
	h := newHarness(t, textConfig())
	h.clip.readErr = errors.New("clipboard locked")
	assert.Equal(t, OutcomeEmpty, h.poll())
	assert.Zero(t, h.tr.callCount())
}

func TestUnchangedClipboardTranslatedOnce(t *testing.T) {
	h := newHarness(t, textConfig())
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	assert.Equal(t, OutcomeDispatched, h.poll())
	for range 5 {
		assert.Equal(t, OutcomeUnchanged, h.poll())
	}
	assert.Equal(t, 1, h.tr.callCount())
	assert.Equal(t, []string{"BONJOUR LE MONDE"}, h.clip.written())
}

func TestTranslatesAndWritesBack(t *testing.T) {
	h := newHarness(t, textConfig())
	h.tr.out["Bonjour le monde"] = "Hello world"
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	require.Equal(t, OutcomeDispatched, h.poll())
	require.Len(t, h.tr.calls, 1)
	assert.Equal(t, call{"Bonjour le monde", "fr", "en"}, h.tr.calls[0])
	assert.Equal(t, []string{"Hello world"}, h.clip.written())
	assert.Equal(t, []result{{"Bonjour le monde", "Hello world", true}}, h.rep.results)
	assert.Equal(t, []string{"text"}, h.rep.detected)
}

func TestOwnWriteIsNotReprocessed(t *testing.T) {
	h := newHarness(t, textConfig())
	h.tr.out["Bonjour le monde"] = "Hello world"
	h.tr.out["Hola amigos"] = "Hello friends"

	h.clip.set(clip.TextPayload("Bonjour le monde"))
	require.Equal(t, OutcomeDispatched, h.poll())

	// The clipboard now holds our translation.
	assert.Equal(t, OutcomeUnchanged, h.poll())
	assert.Equal(t, []string{"text"}, h.rep.detected)

	h.clip.set(clip.TextPayload("Hola amigos"))
	require.Equal(t, OutcomeDispatched, h.poll())
	assert.Equal(t, OutcomeUnchanged, h.poll())

	assert.Equal(t, 2, h.tr.callCount())
	assert.Equal(t, []string{"Hello world", "Hello friends"}, h.clip.written())
}

func TestTextAlreadyInTargetIsSkipped(t *testing.T) {
	h := newHarness(t, textConfig())
	h.clip.set(clip.TextPayload("Hello world"))

	assert.Equal(t, OutcomeDispatched, h.poll())
	assert.Zero(t, h.tr.callCount())
	assert.Empty(t, h.clip.written())
	assert.Empty(t, h.rep.results)
	assert.Equal(t, []string{"Text is already in en, nothing to translate."}, h.rep.notices)
}

func TestImageTextInTargetIsEmittedUnchanged(t *testing.T) {
	h := newHarness(t, textConfig())
	h.ocr.text = "  Hello world\n"
	h.clip.set(testImage())

	require.Equal(t, OutcomeDispatched, h.poll())
	assert.Zero(t, h.tr.callCount())
	assert.Equal(t, []string{"Hello world"}, h.clip.written())
	assert.Equal(t, []result{{"Hello world", "Hello world", true}}, h.rep.results)
	assert.Equal(t, []string{"image"}, h.rep.detected)
}

func TestImageExtractionFailureIsNotRetried(t *testing.T) {
	h := newHarness(t, textConfig())
	h.ocr.err = errors.New("tesseract exploded")
	h.clip.set(testImage())

	assert.Equal(t, OutcomeNoText, h.poll())
	assert.Equal(t, OutcomeUnchanged, h.poll())
	assert.Equal(t, OutcomeUnchanged, h.poll())

	assert.Equal(t, 1, h.ocr.calls)
	assert.Zero(t, h.tr.callCount())
	require.Len(t, h.rep.warnings, 1)
	assert.Contains(t, h.rep.warnings[0], "tesseract exploded")
}

func TestImageWithoutTextWarns(t *testing.T) {
	h := newHarness(t, textConfig())
	h.ocr.text = " \n\t"
	h.clip.set(testImage())

	assert.Equal(t, OutcomeNoText, h.poll())
	assert.Equal(t, []string{"No text was extracted from the image."}, h.rep.warnings)
	assert.Zero(t, h.tr.callCount())
}

func TestImageTranslated(t *testing.T) {
	h := newHarness(t, textConfig())
	h.ocr.text = "Hola amigos"
	h.tr.out["Hola amigos"] = "Hello friends"
	h.clip.set(testImage())

	require.Equal(t, OutcomeDispatched, h.poll())
	assert.Equal(t, []call{{"Hola amigos", "es", "en"}}, h.tr.calls)
	assert.Equal(t, []string{"Hello friends"}, h.clip.written())
}

func TestTextIgnoredWhenWatchTextDisabled(t *testing.T) {
	h := newHarness(t, Config{Target: "en"})
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	assert.Equal(t, OutcomeIgnored, h.poll())
	assert.Zero(t, h.tr.callCount())
	assert.Empty(t, h.rep.detected)

	// Images are still processed.
	h.ocr.text = "Bonjour le monde"
	h.clip.set(testImage())
	assert.Equal(t, OutcomeDispatched, h.poll())
	assert.Equal(t, 1, h.tr.callCount())
}

func TestTranslatorErrorLeavesClipboardAlone(t *testing.T) {
	h := newHarness(t, textConfig())
	h.tr.err = errors.New("service unavailable")
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	assert.Equal(t, OutcomeDispatched, h.poll())
	assert.Equal(t, OutcomeUnchanged, h.poll())

	assert.Equal(t, 1, h.tr.callCount())
	assert.Empty(t, h.clip.written())
	assert.Empty(t, h.rep.results)
	require.Len(t, h.rep.errors, 1)
	assert.Contains(t, h.rep.errors[0], "service unavailable")
}

func TestUndeterminedLanguageFallsBackToAuto(t *testing.T) {
	h := newHarness(t, textConfig())
	h.clip.set(clip.TextPayload("zzq"))

	require.Equal(t, OutcomeDispatched, h.poll())
	assert.Equal(t, []call{{"zzq", lang.Auto, "en"}}, h.tr.calls)
}

func TestPrintOnlyDoesNotWrite(t *testing.T) {
	cfg := textConfig()
	cfg.PrintOnly = true
	h := newHarness(t, cfg)
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	require.Equal(t, OutcomeDispatched, h.poll())
	assert.Empty(t, h.clip.written())
	assert.Equal(t, []result{{"Bonjour le monde", "BONJOUR LE MONDE", false}}, h.rep.results)
}

func TestWriteFailureKeepsSourceFingerprint(t *testing.T) {
	h := newHarness(t, textConfig())
	h.clip.writeErr = errors.New("clipboard owned by another app")
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	require.Equal(t, OutcomeDispatched, h.poll())
	require.Len(t, h.rep.errors, 1)
	assert.Equal(t, []result{{"Bonjour le monde", "BONJOUR LE MONDE", false}}, h.rep.results)

	// The source text must not be picked up again after the failed write.
	assert.Equal(t, OutcomeUnchanged, h.poll())
	assert.Equal(t, 1, h.tr.callCount())
}

func TestBusyWorkerKeepsLatestChange(t *testing.T) {
	h := newHarness(t, textConfig())
	h.tr.gate = make(chan struct{})
	ctx := context.Background()

	h.clip.set(clip.TextPayload("Bonjour le monde"))
	require.Equal(t, OutcomeDispatched, h.loop.Poll(ctx))
	h.clip.set(clip.TextPayload("zzq"))
	require.Equal(t, OutcomeDispatched, h.loop.Poll(ctx))
	h.clip.set(clip.TextPayload("Hola amigos"))
	require.Equal(t, OutcomeDispatched, h.loop.Poll(ctx))

	close(h.tr.gate)
	h.loop.Wait()

	var texts []string
	for _, c := range h.tr.calls {
		texts = append(texts, c.text)
	}
	assert.Equal(t, []string{"Bonjour le monde", "Hola amigos"}, texts)
}

func TestPollAfterPoolClosedRejects(t *testing.T) {
	h := newHarness(t, textConfig())
	h.loop.pool = worker.New(context.Background(), 1)
	h.loop.pool.Close()
	h.clip.set(clip.TextPayload("Bonjour le monde"))
	assert.Equal(t, OutcomeRejected, h.loop.Poll(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, Config{Interval: 5 * time.Millisecond, Target: "en", WatchText: true})
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.clip.written()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, h.tr.callCount())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "dispatched", OutcomeDispatched.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

type stallTranslator struct{ fakeTranslator }

func (t *stallTranslator) Translate(ctx context.Context, _ string, _, _ lang.Code) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestTranslateTimeout(t *testing.T) {
	cfg := textConfig()
	cfg.Timeout = 10 * time.Millisecond
	h := newHarness(t, cfg)
	h.loop.deps.Translator = &stallTranslator{}
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	require.Equal(t, OutcomeDispatched, h.poll())
	require.Len(t, h.rep.errors, 1)
	assert.Contains(t, h.rep.errors[0], context.DeadlineExceeded.Error())
	assert.Empty(t, h.clip.written())
}

func TestJobAfterShutdownIsDropped(t *testing.T) {
	h := newHarness(t, textConfig())
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, OutcomeDispatched, h.loop.Poll(ctx))
	h.loop.Wait()

	assert.Zero(t, h.tr.callCount())
	assert.Empty(t, h.rep.errors)
	assert.Empty(t, h.clip.written())
}

func TestShutdownDuringTranslationIsSilent(t *testing.T) {
	h := newHarness(t, textConfig())
	h.loop.deps.Translator = &stallTranslator{}
	h.clip.set(clip.TextPayload("Bonjour le monde"))

	ctx, cancel := context.WithCancel(context.Background())
	require.Equal(t, OutcomeDispatched, h.loop.Poll(ctx))
	cancel()
	h.loop.Wait()

	assert.Empty(t, h.rep.errors)
	assert.Empty(t, h.rep.results)
	assert.Empty(t, h.clip.written())
}
