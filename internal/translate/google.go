package translate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"go.klb.dev/cliplingo/internal/lang"
)

// DefaultGoogleURL is the public single-shot translate endpoint.
const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

const (
	googleName       = "google"
	maxResponseBytes = 2 * 1024 * 1024
)

// GoogleConfig configures the remote backend.
type GoogleConfig struct {
	BaseURL string
	Timeout time.Duration
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Google is the remote translation backend. It holds no per-call state.
type Google struct {
	baseURL string
	client  *http.Client
}

// NewGoogle returns a remote backend.
func NewGoogle(cfg GoogleConfig) *Google {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Google{baseURL: cfg.BaseURL, client: client}
}

func (g *Google) Name() string { return googleName }

func (g *Google) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// Translate sends one request. If the service echoes the input back while
// the declared source differs from the target, the source was probably
// misdetected: the request is repeated once with automatic detection.
func (g *Google) Translate(ctx context.Context, text string, source, target lang.Code) (string, error) {
	if target.IsAuto() {
		return "", fail(googleName, ErrUnsupported, "target language must be explicit")
	}

	out, err := g.request(ctx, text, source, target)
	if err != nil {
		return "", err
	}
	if sameText(out, text) && source != target && !source.IsAuto() {
		slog.Debug("translation echoed input, retrying with auto-detect",
			"backend", googleName, "declared_source", source, "target", target)
		return g.request(ctx, text, lang.Auto, target)
	}
	return out, nil
}

func (g *Google) request(ctx context.Context, text string, source, target lang.Code) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("dt", "t")
	q.Set("sl", source.String())
	q.Set("tl", target.String())
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fail(googleName, ErrBackend, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fail(googleName, ErrBackend, "request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fail(googleName, ErrBackend, "read response: %v", err)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return "", fail(googleName, ErrUnsupported, "%s -> %s rejected: %s", source, target, snippet(body))
	case resp.StatusCode != http.StatusOK:
		return "", fail(googleName, ErrBackend, "status %d: %s", resp.StatusCode, snippet(body))
	}

	return parseGoogle(body)
}

// parseGoogle joins the translated segments of a response shaped like
//
//	[[["Hello ","Bonjour ",...],["world","monde",...]],null,"fr",...]
func parseGoogle(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fail(googleName, ErrBackend, "invalid JSON response: %s", snippet(body))
	}
	var b strings.Builder
	for _, seg := range gjson.GetBytes(body, "0.#.0").Array() {
		b.WriteString(seg.String())
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fail(googleName, ErrEmptyResult, "no segments in response")
	}
	return out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "…"
	}
	return fmt.Sprintf("%q", s)
}
