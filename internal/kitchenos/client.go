package kitchenos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// REST endpoint paths and defaults.
const (
	defaultAPIBase = "https://api.fresco-kitchenos.com"

	executePath  = "/cooking/execute"
	userPath     = "/user/"
	sessionsPath = "/cooking/sessions/"

	// acceptVersioned is required on read endpoints; the execute endpoint
	// dislikes the versioned Accept header and gets plain JSON instead.
	acceptVersioned = "application/x.default+json;version=2"

	// defaultRequestTimeout bounds each REST request end to end.
	defaultRequestTimeout = 20 * time.Second

	// maxResponseBytes bounds response body reads.
	maxResponseBytes = 4 << 20
)

// Command kinds accepted by the execute endpoint.
const (
	CommandStart  = "kitchenos:Command:Start"
	CommandUpdate = "kitchenos:Command:Update"
	CommandCancel = "kitchenos:Command:Cancel"
)

// TokenSource supplies bearer tokens for API requests.
// Implemented by *TokenManager; faked in tests.
type TokenSource interface {
	// AccessToken returns a fresh access token.
	AccessToken(ctx context.Context) (string, error)

	// IdentityToken returns a fresh identity token, or ("", nil) when the
	// current session has none.
	IdentityToken(ctx context.Context) (string, error)

	// Login forces a full credential exchange.
	Login(ctx context.Context) error
}

var _ TokenSource = (*TokenManager)(nil)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the REST API base (default the production cloud).
	BaseURL string

	// Tokens supplies bearer tokens. Required.
	Tokens TokenSource

	// HTTPClient overrides the HTTP client. When nil a client with a
	// 20 second timeout is used.
	HTTPClient *http.Client

	// Logger is optional.
	Logger Logger
}

// Client executes authenticated requests against the KitchenOS REST API.
//
// Writes prefer the identity token: the backend is observed to accept it
// for command execution while stale access tokens draw spurious 401s.
// Each write walks a fixed fallback ladder (identity token, access token,
// one forced re-login, one final retry pair) and never loops beyond that.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("kitchenos: token source is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAPIBase
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		tokens:     cfg.Tokens,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// executePayload is the wire form of an ExecuteRequest.
type executePayload struct {
	ApplianceModuleIdx    int                  `json:"appliance_module_idx"`
	DeviceID              string               `json:"device_id"`
	Command               string               `json:"command"`
	CompositeCapabilities []CapabilityDocument `json:"composite_capabilities"`
	Capability            *CapabilityDocument  `json:"capability,omitempty"`
}

// attemptOutcome classifies one HTTP attempt. Modelling attempts as tagged
// results keeps the fallback ladder a plain decision table instead of
// control flow threaded through error handling.
type attemptOutcome int

const (
	attemptOK attemptOutcome = iota
	attemptAuthRejected
	attemptFailed
)

// attemptResult is the outcome of one HTTP attempt.
type attemptResult struct {
	outcome attemptOutcome
	result  *ExecuteResult
	body    []byte
	err     error
}

// Execute sends one cooking command.
//
// The fallback ladder, in order:
//  1. Identity token (when the session has one). Success or a non-auth
//     failure is final; a 401/403 falls through.
//  2. Access token. Same classification.
//  3. One forced re-login, then at most one retry pair (identity token
//     first, then access token). Whatever the final attempt produces is
//     surfaced; a third auth-class rejection is returned, never looped.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - req: Command description; Command is required
//
// Returns:
//   - *ExecuteResult: Status and body of the successful attempt
//   - error: AuthError, APIError, or wrapped ErrTransport
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if req.Command == "" {
		return nil, fmt.Errorf("%w: command is required", ErrInvalidCommand)
	}
	if req.DeviceID == "" {
		return nil, fmt.Errorf("%w: device ID is required", ErrInvalidCommand)
	}

	composite := req.CompositeCapabilities
	if composite == nil {
		composite = []CapabilityDocument{}
	}
	payload, err := json.Marshal(executePayload{
		ApplianceModuleIdx:    req.ModuleIdx,
		DeviceID:              req.DeviceID,
		Command:               req.Command,
		CompositeCapabilities: composite,
		Capability:            req.Capability,
	})
	if err != nil {
		return nil, fmt.Errorf("kitchenos: encode execute request: %w", err)
	}

	// First attempt: identity token, when the session has one.
	idToken, err := c.tokens.IdentityToken(ctx)
	if err != nil {
		return nil, err
	}
	if idToken != "" {
		res := c.attemptExecute(ctx, payload, idToken)
		switch res.outcome {
		case attemptOK:
			return res.result, nil
		case attemptFailed:
			return nil, res.err
		}
		c.logDebug("identity token rejected for execute", "device_id", req.DeviceID)
	}

	// Second attempt: access token.
	accessToken, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	res := c.attemptExecute(ctx, payload, accessToken)
	switch res.outcome {
	case attemptOK:
		return res.result, nil
	case attemptFailed:
		return nil, res.err
	}

	// Both tokens rejected: assume complete staleness, log in once and
	// retry the pair. The final attempt's outcome is surfaced as-is.
	c.logInfo("command rejected with both tokens, re-authenticating", "device_id", req.DeviceID)
	if err := c.tokens.Login(ctx); err != nil {
		return nil, err
	}

	idToken, err = c.tokens.IdentityToken(ctx)
	if err != nil {
		return nil, err
	}
	if idToken != "" {
		res = c.attemptExecute(ctx, payload, idToken)
		switch res.outcome {
		case attemptOK:
			return res.result, nil
		case attemptFailed:
			return nil, res.err
		}
	}

	accessToken, err = c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	res = c.attemptExecute(ctx, payload, accessToken)
	if res.outcome == attemptOK {
		return res.result, nil
	}
	return nil, res.err
}

// attemptExecute performs one POST to the execute endpoint and classifies
// the outcome.
func (c *Client) attemptExecute(ctx context.Context, payload []byte, token string) attemptResult {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+executePath, bytes.NewReader(payload))
	if err != nil {
		return attemptResult{outcome: attemptFailed, err: fmt.Errorf("%w: build execute request: %w", ErrTransport, err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return attemptResult{outcome: attemptFailed, err: fmt.Errorf("%w: execute: %w", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return attemptResult{outcome: attemptFailed, err: fmt.Errorf("%w: execute: read response: %w", ErrTransport, err)}
	}

	switch {
	case isSuccessStatus(resp.StatusCode):
		c.logDebug("execute succeeded", "status", resp.StatusCode)
		return attemptResult{outcome: attemptOK, result: parseExecuteResult(resp.StatusCode, body)}
	case isAuthStatus(resp.StatusCode):
		return attemptResult{
			outcome: attemptAuthRejected,
			err:     &AuthError{Op: "execute", Status: resp.StatusCode, Body: excerpt(body)},
		}
	default:
		return attemptResult{
			outcome: attemptFailed,
			err:     &APIError{Status: resp.StatusCode, Body: excerpt(body)},
		}
	}
}

// parseExecuteResult normalises a successful execute response body.
// Empty bodies yield a status-only result; non-JSON bodies are carried
// opaquely rather than rejected.
func parseExecuteResult(status int, body []byte) *ExecuteResult {
	result := &ExecuteResult{Status: status}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return result
	}
	if json.Valid(trimmed) {
		result.Body = json.RawMessage(bytes.Clone(trimmed))
		return result
	}
	result.Text = string(trimmed)
	return result
}

// FetchUser returns the account profile, the source of appliance device IDs.
//
// Reads use the inverse token order from writes: access token first, one
// identity token retry on an auth-class rejection, any remaining failure
// is final.
func (c *Client) FetchUser(ctx context.Context) (*UserProfile, error) {
	body, err := c.getWithRetry(ctx, userPath)
	if err != nil {
		return nil, err
	}

	var profile UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("kitchenos: decode user profile: %w", err)
	}
	return &profile, nil
}

// FetchApplianceCapabilities returns the capability document for a model.
// Non-JSON success bodies yield an empty document.
func (c *Client) FetchApplianceCapabilities(ctx context.Context, modelID string) (json.RawMessage, error) {
	if modelID == "" {
		return nil, fmt.Errorf("kitchenos: model ID is required")
	}
	body, err := c.getWithRetry(ctx, "/appliances/"+url.PathEscape(modelID))
	if err != nil {
		return nil, err
	}
	return rawJSONOrEmpty(body), nil
}

// FetchCookingSessions returns the account's cooking session list.
// Non-JSON success bodies yield an empty document.
func (c *Client) FetchCookingSessions(ctx context.Context) (json.RawMessage, error) {
	body, err := c.getWithRetry(ctx, sessionsPath)
	if err != nil {
		return nil, err
	}
	return rawJSONOrEmpty(body), nil
}

// getWithRetry performs an authenticated GET with the read-path retry:
// access token first, then a single identity token retry on auth-class
// rejection.
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	accessToken, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	res := c.attemptGet(ctx, path, accessToken)
	switch res.outcome {
	case attemptOK:
		return res.body, nil
	case attemptFailed:
		return nil, res.err
	}

	idToken, err := c.tokens.IdentityToken(ctx)
	if err != nil {
		return nil, err
	}
	if idToken == "" {
		return nil, res.err
	}

	c.logDebug("access token rejected for read, retrying with identity token", "path", path)
	res = c.attemptGet(ctx, path, idToken)
	if res.outcome == attemptOK {
		return res.body, nil
	}
	return nil, res.err
}

// attemptGet performs one GET and classifies the outcome.
func (c *Client) attemptGet(ctx context.Context, path, token string) attemptResult {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return attemptResult{outcome: attemptFailed, err: fmt.Errorf("%w: build get request: %w", ErrTransport, err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", acceptVersioned)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return attemptResult{outcome: attemptFailed, err: fmt.Errorf("%w: get %s: %w", ErrTransport, path, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return attemptResult{outcome: attemptFailed, err: fmt.Errorf("%w: get %s: read response: %w", ErrTransport, path, err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return attemptResult{outcome: attemptOK, body: body}
	case isAuthStatus(resp.StatusCode):
		return attemptResult{
			outcome: attemptAuthRejected,
			err:     &AuthError{Op: "get", Status: resp.StatusCode, Body: excerpt(body)},
		}
	default:
		return attemptResult{
			outcome: attemptFailed,
			err:     &APIError{Status: resp.StatusCode, Body: excerpt(body)},
		}
	}
}

// rawJSONOrEmpty returns the body as raw JSON, or an empty document when
// the body is not valid JSON. Read endpoints occasionally answer 200 with
// HTML; callers prefer a well-typed empty document over an error.
func rawJSONOrEmpty(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(bytes.Clone(trimmed))
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}
