package plaid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/plaidbridge/pkg/config"
	"github.com/angelmondragon/plaidbridge/pkg/logger"
	"github.com/angelmondragon/plaidbridge/pkg/metrics"
)

const defaultTimeout = 30 * time.Second

var (
	errClientIDRequired = errors.New("plaid client id is required")
	errSecretRequired   = errors.New("plaid secret is required")
	errClientRequired   = errors.New("plaid client is required")
)

// Credentials are sent as JSON fields in every authenticated request body.
type Credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

// ResponseMeta carries the tracing identifier Plaid returns with every response.
type ResponseMeta struct {
	RequestID string `json:"request_id" validate:"required"`
}

// TraceID returns the Plaid request_id.
func (m ResponseMeta) TraceID() string {
	return m.RequestID
}

// Client issues requests against one Plaid environment. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	environment Environment
	credentials Credentials
	logger      *logger.Logger
	metrics     *metrics.PlaidMetrics
}

// Option customizes the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithBaseURL points the client at a different host, e.g. a test server.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		raw = strings.TrimSpace(raw)
		if raw != "" {
			c.baseURL = strings.TrimRight(raw, "/")
		}
	}
}

// WithLogger attaches a logger for per-request debug lines.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// WithMetrics records request counts and latency on m.
func WithMetrics(m *metrics.PlaidMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient constructs a Client from explicit credentials and environment.
func NewClient(clientID, secret string, env Environment, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	if !env.Valid() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidEnvironment, env)
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     env.BaseURL(),
		environment: env,
		credentials: Credentials{ClientID: clientID, Secret: secret},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig parses the configured environment and builds a Client.
func NewClientFromConfig(cfg config.PlaidConfig, opts ...Option) (*Client, error) {
	env, err := ParseEnvironment(cfg.Environment)
	if err != nil {
		return nil, err
	}
	base := []Option{WithTimeout(cfg.HTTPTimeout)}
	return NewClient(cfg.ClientID, cfg.Secret, env, append(base, opts...)...)
}

// NewClientFromEnv reads PLAID_CLIENT_ID, PLAID_SECRET and PLAID_ENVIRONMENT.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	cfg, err := config.LoadPlaid()
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(*cfg, opts...)
}

// Environment reports which Plaid host the client targets.
func (c *Client) Environment() Environment {
	if c == nil {
		return 0
	}
	return c.environment
}

// ClientID returns the configured Plaid client id.
func (c *Client) ClientID() string {
	if c == nil {
		return ""
	}
	return c.credentials.ClientID
}

func (c *Client) buildURL(endpoint string) string {
	return c.baseURL + "/" + strings.Trim(endpoint, "/")
}

func (c *Client) log(ctx context.Context, phase, endpoint string, fields map[string]any, err error) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"endpoint":          endpoint,
		"phase":             phase,
		"plaid_environment": c.environment.String(),
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	msg := fmt.Sprintf("plaid %s", phase)
	switch phase {
	case phaseRequest:
		c.logger.Debug(ctx, msg)
	case phaseAPIError:
		c.logger.Warn(ctx, msg)
	case phaseError:
		c.logger.Error(ctx, msg, err)
	default:
		c.logger.Info(ctx, msg)
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "client_id", "account_number", "routing"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
