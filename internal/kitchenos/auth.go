package kitchenos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity provider wire constants. The vendor fronts its user accounts with
// an AWS Cognito user pool; these headers and flow names are fixed by that
// service, not by us.
const (
	amzJSONContentType = "application/x-amz-json-1.1"
	amzTargetInitAuth  = "AWSCognitoIdentityProviderService.InitiateAuth"

	authFlowUserPassword = "USER_PASSWORD_AUTH"
	authFlowRefreshToken = "REFRESH_TOKEN_AUTH"
)

const (
	// tokenSafetyMargin is how long before nominal expiry a token is
	// treated as stale. Refreshing early absorbs clock skew and the
	// latency of requests already in flight.
	tokenSafetyMargin = 90 * time.Second

	// defaultExpirySeconds is assumed when the provider omits ExpiresIn.
	defaultExpirySeconds = 3600

	// defaultAuthTimeout bounds each identity provider exchange.
	defaultAuthTimeout = 15 * time.Second

	// maxAuthResponseBytes bounds identity provider response reads.
	maxAuthResponseBytes = 1 << 20
)

// TokenManagerConfig configures a TokenManager.
type TokenManagerConfig struct {
	// Credentials is the KitchenOS account login.
	Credentials Credentials

	// ClientID is the Cognito user-pool client ID.
	ClientID string

	// Region selects the Cognito endpoint (default us-east-2).
	Region string

	// Endpoint overrides the identity provider URL. Used by tests;
	// when empty the endpoint is derived from Region.
	Endpoint string

	// HTTPClient overrides the HTTP client. When nil a client with a
	// 15 second timeout is used.
	HTTPClient *http.Client

	// Logger is optional.
	Logger Logger

	// Now overrides the clock. Used by tests; defaults to time.Now.
	Now func() time.Time
}

// tokenState is the credential triple plus its expiry.
// Guarded by TokenManager.mu in its entirety.
type tokenState struct {
	accessToken   string
	identityToken string
	refreshToken  string
	expiresAt     time.Time
}

// TokenManager owns the KitchenOS token lifecycle.
//
// The vendor issues three tokens per login: an access token (the
// conventional bearer credential), an identity token (which the backend
// accepts for writes), and a refresh token. TokenManager keeps all three
// plus their shared expiry and transparently refreshes or re-logs-in when
// a caller asks for a token that has gone stale.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - One mutex is held across each network exchange, so concurrent
//     callers needing a fresh token trigger exactly one refresh-or-login
//     and all observe its result.
type TokenManager struct {
	creds    Credentials
	clientID string
	endpoint string

	httpClient *http.Client
	logger     Logger
	now        func() time.Time

	mu     sync.Mutex
	tokens tokenState
}

// NewTokenManager creates a TokenManager.
//
// Returns an error if credentials or the client ID are missing; nothing
// touches the network until the first token request or Login call.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if cfg.Credentials.Email == "" || cfg.Credentials.Password == "" {
		return nil, fmt.Errorf("kitchenos: credentials are required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("kitchenos: client ID is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		region := cfg.Region
		if region == "" {
			region = "us-east-2"
		}
		endpoint = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/", region)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultAuthTimeout}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		creds:      cfg.Credentials,
		clientID:   cfg.ClientID,
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}, nil
}

// initiateAuthRequest is the Cognito InitiateAuth request body.
type initiateAuthRequest struct {
	AuthFlow       string            `json:"AuthFlow"`
	ClientID       string            `json:"ClientId"`
	AuthParameters map[string]string `json:"AuthParameters"`
}

// authenticationResult is the token payload inside an InitiateAuth response.
type authenticationResult struct {
	AccessToken  string `json:"AccessToken"`
	IdToken      string `json:"IdToken"`
	RefreshToken string `json:"RefreshToken"`
	ExpiresIn    int    `json:"ExpiresIn"`
}

// initiateAuthResponse is the Cognito InitiateAuth response envelope.
type initiateAuthResponse struct {
	AuthenticationResult authenticationResult `json:"AuthenticationResult"`
}

// Login performs a full credential exchange, replacing all token state.
//
// Call this eagerly at startup to fail fast on bad credentials; afterwards
// token accessors log in on demand. A successful login replaces the whole
// triple: tokens absent from the response are cleared, not retained.
//
// Returns:
//   - error: AuthError on provider rejection, ErrTransport on network failure
func (tm *TokenManager) Login(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.loginLocked(ctx)
}

func (tm *TokenManager) loginLocked(ctx context.Context) error {
	result, err := tm.initiateAuth(ctx, "login", authFlowUserPassword, map[string]string{
		"USERNAME": tm.creds.Email,
		"PASSWORD": tm.creds.Password,
	})
	if err != nil {
		return err
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}

	tm.tokens = tokenState{
		accessToken:   result.AccessToken,
		identityToken: result.IdToken,
		refreshToken:  result.RefreshToken,
		expiresAt:     tm.now().Add(time.Duration(expiresIn) * time.Second),
	}

	tm.logInfo("login successful", "expires_at", tm.tokens.expiresAt)
	return nil
}

// refreshLocked exchanges the refresh token for new access and identity
// tokens. A response that omits the refresh token keeps the existing one;
// a response that omits the identity token clears it.
func (tm *TokenManager) refreshLocked(ctx context.Context) error {
	result, err := tm.initiateAuth(ctx, "refresh", authFlowRefreshToken, map[string]string{
		"REFRESH_TOKEN": tm.tokens.refreshToken,
	})
	if err != nil {
		return err
	}

	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}

	tm.tokens.accessToken = result.AccessToken
	tm.tokens.identityToken = result.IdToken
	if result.RefreshToken != "" {
		tm.tokens.refreshToken = result.RefreshToken
	}
	tm.tokens.expiresAt = tm.now().Add(time.Duration(expiresIn) * time.Second)

	tm.logDebug("token refresh successful", "expires_at", tm.tokens.expiresAt)
	return nil
}

// initiateAuth performs one InitiateAuth exchange against the provider.
// A failed exchange never touches stored token state.
func (tm *TokenManager) initiateAuth(ctx context.Context, op, flow string, params map[string]string) (*authenticationResult, error) {
	payload, err := json.Marshal(initiateAuthRequest{
		AuthFlow:       flow,
		ClientID:       tm.clientID,
		AuthParameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("kitchenos: encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %w", ErrTransport, op, err)
	}
	req.Header.Set("Content-Type", amzJSONContentType)
	req.Header.Set("X-Amz-Target", amzTargetInitAuth)

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %w", ErrTransport, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		tm.logWarn("identity provider rejected exchange", "op", op, "status", resp.StatusCode)
		return nil, &AuthError{Op: op, Status: resp.StatusCode, Body: excerpt(body)}
	}

	var envelope initiateAuthResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &AuthError{Op: op, Status: resp.StatusCode, Body: "malformed provider response: " + excerpt(body)}
	}
	if envelope.AuthenticationResult.AccessToken == "" {
		return nil, &AuthError{Op: op, Status: resp.StatusCode, Body: "provider response missing access token"}
	}

	return &envelope.AuthenticationResult, nil
}

// ensureFreshLocked implements the freshness algorithm: serve the cached
// token when still inside the safety margin, otherwise refresh, otherwise
// log in from scratch.
func (tm *TokenManager) ensureFreshLocked(ctx context.Context) error {
	if tm.tokens.accessToken != "" && tm.now().Add(tokenSafetyMargin).Before(tm.tokens.expiresAt) {
		return nil
	}

	if tm.tokens.refreshToken != "" {
		err := tm.refreshLocked(ctx)
		if err == nil {
			return nil
		}
		tm.logWarn("token refresh failed, falling back to login", "error", err)
	}

	return tm.loginLocked(ctx)
}

// AccessToken returns a fresh access token, refreshing or logging in as
// needed.
//
// Returns:
//   - string: The access token
//   - error: AuthError if no token could be obtained
func (tm *TokenManager) AccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := tm.ensureFreshLocked(ctx); err != nil {
		return "", err
	}
	return tm.tokens.accessToken, nil
}

// IdentityToken returns a fresh identity token.
//
// Not every exchange yields one: a refresh response may omit it. That case
// returns ("", nil) so callers fall back to the access token instead of
// treating the session as broken.
func (tm *TokenManager) IdentityToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := tm.ensureFreshLocked(ctx); err != nil {
		return "", err
	}
	return tm.tokens.identityToken, nil
}

// Authenticated reports whether a token triple is currently held.
// It does not consider expiry; use ExpiresAt for that.
func (tm *TokenManager) Authenticated() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.tokens.accessToken != ""
}

// ExpiresAt returns the nominal expiry of the current tokens, or the zero
// time when unauthenticated.
func (tm *TokenManager) ExpiresAt() time.Time {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.tokens.expiresAt
}

// SessionInfo returns diagnostic claims from the current identity token.
//
// The token is parsed without signature verification; the result is for
// health reporting and the ops API, never authorisation.
func (tm *TokenManager) SessionInfo() SessionInfo {
	tm.mu.Lock()
	identityToken := tm.tokens.identityToken
	authenticated := tm.tokens.accessToken != ""
	expiresAt := tm.tokens.expiresAt
	tm.mu.Unlock()

	info := SessionInfo{Authenticated: authenticated}
	if authenticated && !expiresAt.IsZero() {
		info.TokenExpiresAt = &expiresAt
	}
	if identityToken == "" {
		return info
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(identityToken, claims); err != nil {
		tm.logDebug("identity token claims unparseable", "error", err)
		return info
	}

	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if iss, err := claims.GetIssuer(); err == nil {
		info.Issuer = iss
	}
	if email, ok := claims["email"].(string); ok {
		info.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ClaimsExpireAt = &t
	}

	return info
}

func (tm *TokenManager) logDebug(msg string, keysAndValues ...any) {
	if tm.logger != nil {
		tm.logger.Debug(msg, keysAndValues...)
	}
}

func (tm *TokenManager) logInfo(msg string, keysAndValues ...any) {
	if tm.logger != nil {
		tm.logger.Info(msg, keysAndValues...)
	}
}

func (tm *TokenManager) logWarn(msg string, keysAndValues ...any) {
	if tm.logger != nil {
		tm.logger.Warn(msg, keysAndValues...)
	}
}
