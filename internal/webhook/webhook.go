// Package webhook forwards preserved uploads to an external endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/mediagate/uploader/internal/metrics"
)

const (
	fieldName   = "file"
	fileName    = "image.png"
	partType    = "application/octet-stream"
	maxRespBody = 1 << 20
)

// ErrStatus is returned when the endpoint answers with a non-2xx status.
var ErrStatus = errors.New("webhook returned error status")

// Options configures a Notifier.
type Options struct {
	URL     string
	Timeout time.Duration
	// Async sends in the background instead of blocking the upload response.
	Async bool
	// Client overrides the HTTP client; nil uses a client with Timeout.
	Client *http.Client
}

// Notifier posts raw upload bytes as a multipart form. Calls go through a
// circuit breaker so a dead endpoint stops delaying uploads.
type Notifier struct {
	url     string
	timeout time.Duration
	async   bool
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// New creates a Notifier. An empty URL yields a Notifier that does nothing.
func New(opts Options, log zerolog.Logger) *Notifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Notifier{
		url:     opts.URL,
		timeout: opts.Timeout,
		async:   opts.Async,
		client:  client,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "preserve-webhook",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		log: log.With().Str("component", "webhook").Logger(),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Dispatch sends data according to the configured mode and never fails the
// caller: errors are logged and counted.
func (n *Notifier) Dispatch(ctx context.Context, data []byte) {
	if !n.Enabled() {
		return
	}

	send := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if _, err := n.Notify(ctx, data); err != nil {
			metrics.WebhookFailures.Inc()
			n.log.Warn().Err(err).Int("size", len(data)).Msg("preserve notification failed")
		}
	}

	if !n.async {
		send(ctx)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		send(context.WithoutCancel(ctx))
	}()
}

// Wait blocks until background notifications have finished.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}

// Notify posts data and decodes the JSON response.
func (n *Notifier) Notify(ctx context.Context, data []byte) (map[string]any, error) {
	out, err := n.cb.Execute(func() (interface{}, error) {
		return n.post(ctx, data)
	})
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func (n *Notifier) post(ctx context.Context, data []byte) (map[string]any, error) {
	body, contentType, err := encodeForm(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, body)
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	out := map[string]any{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRespBody)).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode webhook response: %w", err)
	}
	return out, nil
}

func encodeForm(data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	h.Set("Content-Type", partType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
