package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout   = 60 * time.Second
	defaultRetryAttempts = 2
	defaultRetryDelay    = time.Second
)

// Config captures the runtime settings for the transcription service.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Segment is one timed span of transcript text. Times are relative to the
// submitted audio segment.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Client wraps a whisper-style transcription endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryDelay       time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 2).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryDelay:       defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type inferenceResponse struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Error    string    `json:"error"`
}

// Transcribe submits a WAV payload and returns timed segments. Responses
// without segment timing degrade to a single segment spanning the payload.
func (c *Client) Transcribe(ctx context.Context, wav []byte) ([]Segment, error) {
	if len(wav) == 0 {
		return nil, errors.New("transcribe: empty audio payload")
	}
	if c.cfg.BaseURL == "" {
		return nil, errors.New("transcribe: base url required")
	}

	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		segments, err := c.transcribeOnce(ctx, wav)
		if err == nil {
			return segments, nil
		}
		lastErr = err
		if attempt >= attempts || ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) transcribeOnce(ctx context.Context, wav []byte) ([]Segment, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "segment.wav")
	if err != nil {
		return nil, fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("transcribe: write form: %w", err)
	}
	if c.cfg.Model != "" {
		if err := writer.WriteField("model", c.cfg.Model); err != nil {
			return nil, fmt.Errorf("transcribe: write field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, fmt.Errorf("transcribe: write field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: http error: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	var decoded inferenceResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}
	if strings.TrimSpace(decoded.Error) != "" {
		return nil, fmt.Errorf("transcribe: api error: %s", strings.TrimSpace(decoded.Error))
	}
	if len(decoded.Segments) > 0 {
		return decoded.Segments, nil
	}
	text := strings.TrimSpace(decoded.Text)
	if text == "" {
		return nil, nil
	}
	return []Segment{{Text: text}}, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("transcribe: http %d: %s", e.code, e.body)
}

func isRetryable(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code == http.StatusRequestTimeout ||
			statusErr.code == http.StatusTooManyRequests ||
			statusErr.code >= http.StatusInternalServerError
	}
	return strings.Contains(err.Error(), "http error")
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
