// Package etherscan provides a client for the Etherscan v2 contract
// verification API.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pendergraft/casino-deployer/internal/middleware/logging"
	"github.com/pendergraft/casino-deployer/internal/observability/metrics"
	"github.com/pendergraft/casino-deployer/internal/verification/domain"
)

// DefaultBaseURL is the multichain Etherscan v2 endpoint
const DefaultBaseURL = "https://api.etherscan.io/v2/api"

// DefaultRequestsPerSecond matches the free API tier
const DefaultRequestsPerSecond = 5

// ErrMissingAPIKey is returned before any request when the client has no key
var ErrMissingAPIKey = errors.New("no Etherscan API key configured")

// Client is an Etherscan API client
type Client struct {
	baseURL    string
	apiKey     string
	chainID    int64
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRateLimit sets the maximum request rate
func WithRateLimit(requestsPerSecond float64) Option {
	return func(client *Client) {
		if requestsPerSecond > 0 {
			client.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// WithLogger logs every explorer request at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// New creates a new Etherscan client for one chain
func New(baseURL, apiKey string, chainID int64, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		chainID: chainID,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: metrics.Transport(nil),
		},
		limiter: rate.NewLimiter(DefaultRequestsPerSecond, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger != nil {
		wrapped := *c.httpClient
		wrapped.Transport = logging.Transport(wrapped.Transport, c.logger)
		c.httpClient = &wrapped
	}

	return c
}

// response is the envelope every Etherscan endpoint returns
type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// APIError represents an Etherscan error response
type APIError struct {
	Action  string
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result != "" {
		return fmt.Sprintf("etherscan %s: %s", e.Action, e.Result)
	}
	return fmt.Sprintf("etherscan %s: %s", e.Action, e.Message)
}

// Submit uploads standard JSON input for verification and returns the GUID
// to poll.
func (c *Client) Submit(ctx context.Context, sub domain.Submission) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("codeformat", "solidity-standard-json-input")
	form.Set("sourceCode", string(sub.StandardJSON))
	form.Set("contractaddress", sub.Address)
	form.Set("contractname", sub.ContractName)
	form.Set("compilerversion", sub.CompilerVersion)
	// The API spells it this way.
	form.Set("constructorArguements", sub.ConstructorArgs)
	if sub.License != "" {
		form.Set("licenseType", sub.License)
	}

	chainID := sub.ChainID
	if chainID == 0 {
		chainID = c.chainID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(chainID, "verifysourcecode", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req, "verifysourcecode")
	if err != nil {
		return "", err
	}

	var guid string
	if err := json.Unmarshal(resp.Result, &guid); err != nil {
		return "", fmt.Errorf("decoding verification GUID: %w", err)
	}
	return guid, nil
}

// Status checks a submitted verification
func (c *Client) Status(ctx context.Context, guid string) (*domain.Status, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("guid", guid)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.chainID, "checkverifystatus", params), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var result string
	_ = json.Unmarshal(resp.Result, &result)

	return parseStatus(resp.Status, result), nil
}

// parseStatus maps checkverifystatus results; failures come back with
// status "0", as do pending ones. "Already verified" is a failure, matching
// what Submit reports for it.
func parseStatus(status, result string) *domain.Status {
	lower := strings.ToLower(result)
	switch {
	case strings.Contains(lower, "already verified"):
		return &domain.Status{Message: result}
	case strings.Contains(lower, "pending"):
		return &domain.Status{Pending: true, Message: result}
	case status == "1":
		return &domain.Status{Verified: true, Message: result}
	default:
		return &domain.Status{Message: result}
	}
}

func (c *Client) endpoint(chainID int64, action string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("chainid", strconv.FormatInt(chainID, 10))
	q.Set("module", "contract")
	q.Set("action", action)
	return c.baseURL + "?" + q.Encode()
}

// do sends the request and treats status "0" as an error
func (c *Client) do(req *http.Request, action string) (*response, error) {
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		var result string
		_ = json.Unmarshal(resp.Result, &result)
		return nil, &APIError{Action: action, Message: resp.Message, Result: result}
	}
	return resp, nil
}

// send waits for the rate limiter, performs the request and decodes the envelope
func (c *Client) send(req *http.Request) (*response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", redact(err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("etherscan returned HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

// redact drops the query from URL errors so the API key never reaches logs
// or verification messages.
func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		urlErr.URL = u.String()
	}
	return err
}
