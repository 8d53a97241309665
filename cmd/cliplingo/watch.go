package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliplingo/internal/clip"
	"go.klb.dev/cliplingo/internal/console"
	"go.klb.dev/cliplingo/internal/dispatch"
	"go.klb.dev/cliplingo/internal/instance"
	"go.klb.dev/cliplingo/internal/lang"
	"go.klb.dev/cliplingo/internal/logging"
	"go.klb.dev/cliplingo/internal/ocr"
	"go.klb.dev/cliplingo/internal/translate"
)

const (
	backendGoogle = "google"
	backendLocal  = "local"
)

var errUsage = errors.New("invalid configuration")

func newWatchCmd(use string) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   use,
		Short: "Watch the clipboard and translate new content",
		Long: `Polls the clipboard. Each new image is run through OCR, each new text is
used directly; the result is translated into --target and written back to
the clipboard.

Backends:
  google  remote translation endpoint (--google-url, --timeout)
  local   neural model served by a runner process (--model-dir, --model-runner)

Precedence (lowest → highest): defaults → config file → CLIPLINGO_* env vars → flags`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PreRunE:      func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:         func(cmd *cobra.Command, _ []string) error { return runWatch(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Duration("interval", dispatch.DefaultInterval, "clipboard poll interval")
	f.String("target", "en", "target language (ISO 639-1)")
	f.String("backend", backendGoogle, "translation backend: google|local")
	f.String("google-url", translate.DefaultGoogleURL, "remote translation endpoint")
	f.Duration("timeout", 15*time.Second, "per-request translation timeout")
	f.String("model-dir", "", "local model directory (required for --backend local)")
	f.String("model-runner", "", "command serving the local model (overrides model.json)")
	f.String("ocr-lang", "eng", "tesseract languages, comma separated")
	f.String("tessdata", "", "tessdata directory (default: system)")
	f.Int("ocr-threshold", 0, "binarize images at this gray level before OCR, 1-255 (0 = off)")
	f.Int("workers", 1, "concurrent translation jobs")
	f.Bool("print-only", false, "print translations without writing them to the clipboard")
	f.Bool("text", true, "also translate copied text (false: images only)")
	f.Bool("no-color", false, "disable colored console output")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

type watchOptions struct {
	interval    time.Duration
	target      lang.Code
	backend     string
	googleURL   string
	timeout     time.Duration
	modelDir    string
	modelRunner []string
	ocrLangs    []string
	tessdata    string
	threshold   uint8
	workers     int
	printOnly   bool
	watchText   bool
	noColor     bool
}

// loadWatchOptions reads and validates the watch settings.
func loadWatchOptions(v *viper.Viper) (watchOptions, error) {
	o := watchOptions{
		interval:    v.GetDuration("interval"),
		backend:     strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		googleURL:   v.GetString("google-url"),
		timeout:     v.GetDuration("timeout"),
		modelDir:    v.GetString("model-dir"),
		modelRunner: strings.Fields(v.GetString("model-runner")),
		ocrLangs:    splitList(v.GetString("ocr-lang")),
		tessdata:    v.GetString("tessdata"),
		workers:     v.GetInt("workers"),
		printOnly:   v.GetBool("print-only"),
		watchText:   v.GetBool("text"),
		noColor:     v.GetBool("no-color") || !logging.IsTTY(os.Stdout),
	}

	if o.interval <= 0 {
		return o, fmt.Errorf("%w: --interval must be positive, got %s", errUsage, o.interval)
	}
	target, err := lang.Parse(v.GetString("target"))
	if err != nil {
		return o, fmt.Errorf("%w: --target: %v", errUsage, err)
	}
	if target.IsAuto() {
		return o, fmt.Errorf("%w: --target cannot be %q", errUsage, lang.Auto)
	}
	o.target = target

	switch o.backend {
	case backendGoogle:
	case backendLocal:
		if o.modelDir == "" {
			return o, fmt.Errorf("%w: --backend local needs --model-dir", errUsage)
		}
	default:
		return o, fmt.Errorf("%w: unknown --backend %q (want google or local)", errUsage, o.backend)
	}

	if o.workers < 1 {
		return o, fmt.Errorf("%w: --workers must be at least 1, got %d", errUsage, o.workers)
	}
	th := v.GetInt("ocr-threshold")
	if th < 0 || th > 255 {
		return o, fmt.Errorf("%w: --ocr-threshold must be 0-255, got %d", errUsage, th)
	}
	o.threshold = uint8(th)
	return o, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// newTranslator builds the configured backend. Loading a local model is
// the slow part of startup and any failure there is fatal.
func newTranslator(ctx context.Context, o watchOptions) (translate.Translator, error) {
	switch o.backend {
	case backendLocal:
		l, err := translate.LoadLocal(ctx, translate.LocalConfig{
			ModelDir: o.modelDir,
			Runner:   o.modelRunner,
		})
		if err != nil {
			return nil, err
		}
		if l.Target() != o.target {
			_ = l.Close()
			return nil, fmt.Errorf("%w: model %s translates into %q, --target is %q",
				errUsage, l.Name(), l.Target(), o.target)
		}
		return l, nil
	default:
		return translate.NewGoogle(translate.GoogleConfig{
			BaseURL: o.googleURL,
			Timeout: o.timeout,
		}), nil
	}
}

func runWatch(ctx context.Context, v *viper.Viper) error {
	setupLogging(v)

	o, err := loadWatchOptions(v)
	if err != nil {
		return err
	}

	lock, err := instance.Acquire(instance.LockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	slog.Info("cliplingo starting",
		"version", Version,
		"backend", o.backend,
		"target", o.target,
		"ocr_langs", o.ocrLangs,
		"lock", lock.Path(),
	)

	tr, err := newTranslator(ctx, o)
	if err != nil {
		return fmt.Errorf("translator: %w", err)
	}
	defer func() {
		if err := tr.Close(); err != nil {
			slog.Warn("translator shutdown", "err", err)
		}
	}()
	slog.Info("translator ready", "name", tr.Name())

	backend := clip.New()
	defer backend.Close()
	slog.Info("clipboard backend", "name", backend.Name())

	out := console.New(os.Stdout, o.noColor)
	loop := dispatch.New(dispatch.Config{
		Interval:  o.interval,
		Target:    o.target,
		WatchText: o.watchText,
		PrintOnly: o.printOnly,
		Workers:   o.workers,
		Timeout:   o.timeout,
	}, dispatch.Deps{
		Clipboard: backend,
		Extractor: ocr.NewTesseract(ocr.Options{
			Languages:      o.ocrLangs,
			TessdataPrefix: o.tessdata,
			Threshold:      o.threshold,
		}),
		Identifier: lang.NewWhatlang(),
		Translator: tr,
		Reporter:   out,
	})

	out.Started(console.Describe(o.watchText))
	err = loop.Run(ctx)
	out.Stopped()
	return err
}
