package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/couchcryptid/outage-feed-etl/internal/domain"
	"github.com/couchcryptid/outage-feed-etl/internal/observability"
)

// ErrDisabled is returned by New when no API key is configured.
var ErrDisabled = errors.New("llm classifier disabled")

const (
	jsonResponseType = "json_object"
	maxErrorBody     = 512
	callJudge        = "judge"
	callWindow       = "window"
)

// Config captures the settings required to talk to an OpenAI-compatible
// chat completions endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements domain.Judge and domain.WindowExtractor against a chat
// completions API. Calls go through a retry policy and a circuit breaker so
// a failing service stops being called for a cool-down period.
type Client struct {
	cfg        Config
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger

	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	breakerFails uint
	breakerRuns  uint
	breakerDelay time.Duration
	executor     failsafe.Executor[string]
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

// WithRetry overrides the retry count and backoff bounds.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithCircuitBreaker opens the breaker after failures out of executions and
// keeps it open for delay.
func WithCircuitBreaker(failures, executions uint, delay time.Duration) Option {
	return func(c *Client) {
		c.breakerFails = failures
		c.breakerRuns = executions
		c.breakerDelay = delay
	}
}

// New creates a client, or returns ErrDisabled when cfg has no API key.
func New(cfg Config, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		metrics:      metrics,
		logger:       logger,
		maxRetries:   2,
		baseDelay:    500 * time.Millisecond,
		maxDelay:     4 * time.Second,
		breakerFails: 5,
		breakerRuns:  10,
		breakerDelay: time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = c.newExecutor()
	return c, nil
}

func (c *Client) newExecutor() failsafe.Executor[string] {
	if c.maxDelay < c.baseDelay {
		c.maxDelay = c.baseDelay
	}
	retry := retrypolicy.NewBuilder[string]().
		WithBackoff(c.baseDelay, c.maxDelay).
		WithMaxRetries(max(c.maxRetries, 0)).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool { return retryable(err) }).
		Build()

	breaker := circuitbreaker.NewBuilder[string]().
		WithFailureThresholdRatio(c.breakerFails, c.breakerRuns).
		WithDelay(c.breakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(_ string, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			c.logger.Warn("classifier circuit breaker state change",
				"from", stateName(e.OldState),
				"to", stateName(e.NewState),
			)
		}).
		Build()

	return failsafe.With[string](retry, breaker)
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}

// Judge asks the model whether an item belongs to vertical v.
func (c *Client) Judge(ctx context.Context, v domain.Vertical, title, summary string) (domain.Judgment, error) {
	content, err := c.complete(ctx, callJudge, judgePrompt(v), itemPrompt(title, summary))
	if err != nil {
		return domain.Judgment{}, err
	}

	var resp judgeResponse
	if err := decodeModelJSON(content, &resp); err != nil {
		return domain.Judgment{}, fmt.Errorf("decode judgment: %w", err)
	}
	return resp.judgment(), nil
}

// ExtractWindow asks the model for a planned window in text, relative to now.
// It returns nil when the model reports no window.
func (c *Client) ExtractWindow(ctx context.Context, text string, now time.Time) (*domain.Window, error) {
	today := now.In(domain.CivilZone).Format("Monday 2 January 2006")
	content, err := c.complete(ctx, callWindow, windowPrompt(today), text)
	if err != nil {
		return nil, err
	}

	var resp windowResponse
	if err := decodeModelJSON(content, &resp); err != nil {
		return nil, fmt.Errorf("decode window: %w", err)
	}
	return resp.window()
}

// complete runs one chat completion through the retry and breaker policies.
func (c *Client) complete(ctx context.Context, call, system, user string) (string, error) {
	start := time.Now()
	content, err := c.executor.WithContext(ctx).Get(func() (string, error) {
		return c.post(ctx, system, user)
	})
	c.metrics.ClassifierDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ClassifierRequests.WithLabelValues(call, "error").Inc()
		return "", fmt.Errorf("%s request: %w", call, err)
	}
	c.metrics.ClassifierRequests.WithLabelValues(call, "success").Inc()
	return content, nil
}

func (c *Client) post(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errEmptyContent
	}
	return out.Choices[0].Message.Content, nil
}

var errEmptyContent = errors.New("empty completion content")

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

// retryable retries transport failures, 5xx and 429. An open breaker,
// cancellation and client errors are final.
func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return !errors.Is(err, errEmptyContent)
}

// Chat completion wire types.

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type judgeResponse struct {
	IsRelevant    bool    `json:"isRelevant"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
	ExtractedInfo struct {
		AffectedAreas []string `json:"affectedAreas"`
		OutageType    string   `json:"outageType"`
	} `json:"extractedInfo"`
}

func (r judgeResponse) judgment() domain.Judgment {
	conf := r.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	status, _ := domain.ParseStatus(r.ExtractedInfo.OutageType)
	if strings.EqualFold(strings.TrimSpace(r.ExtractedInfo.OutageType), "scheduled") {
		status = domain.StatusPlanned
	}
	return domain.Judgment{
		IsRelevant:    r.IsRelevant,
		Confidence:    conf,
		Reason:        r.Reason,
		AffectedAreas: r.ExtractedInfo.AffectedAreas,
		Status:        status,
	}
}

type windowResponse struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// modelTimeLayouts are tried in order; layouts without an offset are civil time.
var modelTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func (r windowResponse) window() (*domain.Window, error) {
	if r.Start == nil || strings.TrimSpace(*r.Start) == "" {
		return nil, nil
	}
	start, err := parseModelTime(*r.Start)
	if err != nil {
		return nil, fmt.Errorf("window start: %w", err)
	}
	var end *time.Time
	if r.End != nil && strings.TrimSpace(*r.End) != "" {
		if e, err := parseModelTime(*r.End); err == nil {
			end = &e
		}
	}
	return domain.NewWindow(start, end), nil
}

func parseModelTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range modelTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, domain.CivilZone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
