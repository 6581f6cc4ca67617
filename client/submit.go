package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/notify"
)

// DefaultSuccessMessage is shown when a successful payload carries no message.
const DefaultSuccessMessage = "Operation completed successfully!"

// Outcome is the resolved result of one submission.
type Outcome struct {
	Success bool
	Payload map[string]any // decoded response, nil on transport failure
	Err     string
	// Transport marks failures that never produced a decodable envelope.
	Transport bool
}

// Submitter posts forms to a toolkit server.
type Submitter struct {
	cfg      Config
	http     *http.Client
	notifier Notifier
	logger   *zap.Logger
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithHTTPClient replaces the default client built from Config.Timeout.
func WithHTTPClient(c *http.Client) SubmitterOption {
	return func(s *Submitter) { s.http = c }
}

// WithLogger sets the logger for request failures; the default discards.
func WithLogger(l *zap.Logger) SubmitterOption {
	return func(s *Submitter) { s.logger = l }
}

// NewSubmitter builds a Submitter that reports outcomes through n.
func NewSubmitter(cfg Config, n Notifier, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		notifier: n,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Do posts form to endpoint while ctl is marked busy, and classifies the response.
// ctl is restored before Do returns, whatever the outcome.
func (s *Submitter) Do(ctx context.Context, endpoint Endpoint, form *Form, ctl Control) Outcome {
	release := markBusy(ctl)
	defer release()

	if !endpoint.Valid() {
		return Outcome{Err: fmt.Sprintf("unknown endpoint %q", endpoint), Transport: true}
	}
	if form == nil {
		form = NewForm()
	}
	body, contentType, err := form.encode()
	if err != nil {
		return Outcome{Err: err.Error(), Transport: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+endpoint.Path(), body)
	if err != nil {
		return Outcome{Err: err.Error(), Transport: true}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("submission failed", zap.String("endpoint", string(endpoint)), zap.Error(err))
		return Outcome{Err: err.Error(), Transport: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Outcome{Err: fmt.Sprintf("HTTP error! status: %d", resp.StatusCode), Transport: true}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Err: err.Error(), Transport: true}
	}
	var payload map[string]any
	if err := jsoniter.Unmarshal(raw, &payload); err != nil || payload == nil {
		return Outcome{Err: "Invalid response from server", Transport: true}
	}

	if ok, _ := payload["success"].(bool); ok {
		return Outcome{Success: true, Payload: payload}
	}
	msg, _ := payload["error"].(string)
	if msg == "" {
		msg = "Unknown error"
	}
	return Outcome{Payload: payload, Err: msg}
}

// Submit runs Do, shows exactly one notification and calls at most one of the callbacks.
// Transport failures reach onError as {"error": <message>}.
func (s *Submitter) Submit(ctx context.Context, endpoint Endpoint, form *Form, ctl Control,
	onSuccess, onError func(map[string]any)) Outcome {
	out := s.Do(ctx, endpoint, form, ctl)

	switch {
	case out.Success:
		msg, _ := out.Payload["message"].(string)
		if msg == "" {
			msg = DefaultSuccessMessage
		}
		s.show(msg, notify.Success)
		if onSuccess != nil {
			onSuccess(out.Payload)
		}
	case out.Transport:
		s.show(out.Err, notify.Error)
		if onError != nil {
			onError(map[string]any{"error": out.Err})
		}
	default:
		s.show(out.Err, notify.Error)
		if onError != nil {
			onError(out.Payload)
		}
	}
	return out
}

func (s *Submitter) show(msg string, kind notify.Kind) {
	if s.notifier != nil {
		s.notifier.Show(msg, kind, s.cfg.AlertDuration)
	}
}

// Download fetches a download_url returned by the server into dir and returns the
// written path. Relative URLs are resolved against the configured server.
func (s *Submitter) Download(ctx context.Context, url, dir string) (string, error) {
	if strings.HasPrefix(url, "/") {
		url = s.cfg.BaseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	name := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	if name == "" {
		name = path.Base(req.URL.Path)
	}
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("cannot derive a file name from %s", url)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.logger.Debug("downloaded", zap.String("file", dest))
	return dest, nil
}
