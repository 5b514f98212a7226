package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultOAuthURL  = "https://oauth.ring.com/oauth/token"
	DefaultClientAPI = "https://api.ring.com/clients_api/"
	DefaultAppAPI    = "https://app.ring.com/rhq/v1/"

	oauthClientID = "ring_official_android"
	apiVersion    = "11"
)

// Config holds the configuration for APIClient
type Config struct {
	Email         string
	Password      string
	RefreshToken  string
	TwoFactorCode string
	HardwareID    string

	RequestTimeout time.Duration
	Logger         *zap.Logger

	// Endpoint overrides, mainly for tests
	OAuthURL     string
	ClientAPIURL string
	AppAPIURL    string

	// OnTokenRefreshed receives every new refresh token issued by the OAuth endpoint
	OnTokenRefreshed func(refreshToken string)
}

// APIClient handles authenticated communication with the Ring cloud API
type APIClient struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger

	mu             sync.Mutex
	accessToken    string
	refreshToken   string
	sessionCreated bool
}

// NewAPIClient creates a new API client
func NewAPIClient(cfg Config) *APIClient {
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = DefaultOAuthURL
	}
	if cfg.ClientAPIURL == "" {
		cfg.ClientAPIURL = DefaultClientAPI
	}
	if cfg.AppAPIURL == "" {
		cfg.AppAPIURL = DefaultAppAPI
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := resty.New()
	r.SetTimeout(cfg.RequestTimeout)
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", "android:com.ringapp")

	return &APIClient{
		http:         r,
		cfg:          cfg,
		logger:       cfg.Logger,
		refreshToken: cfg.RefreshToken,
	}
}

// SignIn obtains an access token and registers the client session
func (c *APIClient) SignIn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signInLocked(ctx)
}

func (c *APIClient) signInLocked(ctx context.Context) error {
	if c.accessToken == "" {
		if err := c.grantLocked(ctx); err != nil {
			return err
		}
	}
	if c.sessionCreated {
		return nil
	}
	if err := c.createSessionLocked(ctx); err != nil {
		return err
	}
	c.sessionCreated = true
	return nil
}

// grantLocked requests a token, preferring the refresh token over the password grant
func (c *APIClient) grantLocked(ctx context.Context) error {
	body := map[string]string{
		"client_id": oauthClientID,
		"scope":     "client",
	}
	switch {
	case c.refreshToken != "":
		body["grant_type"] = "refresh_token"
		body["refresh_token"] = c.refreshToken
	case c.cfg.Email != "" && c.cfg.Password != "":
		body["grant_type"] = "password"
		body["username"] = c.cfg.Email
		body["password"] = c.cfg.Password
	default:
		return ErrNotAuthenticated
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("2fa-support", "true").
		SetBody(body).
		SetResult(&tokenResponse{}).
		ForceContentType("application/json")
	if c.cfg.TwoFactorCode != "" {
		req.SetHeader("2fa-code", c.cfg.TwoFactorCode)
	}
	if c.cfg.HardwareID != "" {
		req.SetHeader("hardware_id", c.cfg.HardwareID)
	}

	resp, err := req.Post(c.cfg.OAuthURL)
	if err != nil {
		return fmt.Errorf("failed to send token request: %w", err)
	}
	if resp.StatusCode() == http.StatusPreconditionFailed {
		return ErrTwoFactorRequired
	}
	if resp.IsError() {
		return &StatusError{Method: http.MethodPost, URL: c.cfg.OAuthURL, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	token, ok := resp.Result().(*tokenResponse)
	if !ok || token.AccessToken == "" {
		return fmt.Errorf("token response did not contain an access token")
	}

	c.accessToken = token.AccessToken
	if token.RefreshToken != "" && token.RefreshToken != c.refreshToken {
		c.refreshToken = token.RefreshToken
		if c.cfg.OnTokenRefreshed != nil {
			c.cfg.OnTokenRefreshed(token.RefreshToken)
		}
	}

	c.logger.Debug("Access token granted", zap.Int("expires_in", token.ExpiresIn))
	return nil
}

func (c *APIClient) createSessionLocked(ctx context.Context) error {
	body := map[string]any{
		"device": map[string]any{
			"hardware_id": c.cfg.HardwareID,
			"os":          "android",
			"metadata": map[string]string{
				"api_version":  apiVersion,
				"device_model": "ringwatch",
			},
		},
	}

	url := c.cfg.ClientAPIURL + "session"
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.accessToken).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("api_version", apiVersion).
		SetBody(body).
		Post(url)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if resp.IsError() {
		return &StatusError{Method: http.MethodPost, URL: url, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// currentToken returns a usable access token, signing in if necessary
func (c *APIClient) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.signInLocked(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

// refreshAfterUnauthorized discards a rejected token. Concurrent callers that
// saw the same stale token share one refresh.
func (c *APIClient) refreshAfterUnauthorized(ctx context.Context, stale string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != stale {
		return nil
	}
	c.accessToken = ""
	return c.grantLocked(ctx)
}

// getJSON performs an authenticated GET, retrying once after a 401
func (c *APIClient) getJSON(ctx context.Context, url string, query map[string]string, result any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.currentToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParams(query).
			SetResult(result).
			ForceContentType("application/json").
			Get(url)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}

		if resp.StatusCode() == http.StatusUnauthorized && attempt == 0 {
			c.logger.Debug("Access token rejected, refreshing", zap.String("url", url))
			if err := c.refreshAfterUnauthorized(ctx, token); err != nil {
				return fmt.Errorf("failed to refresh token: %w", err)
			}
			continue
		}
		if resp.IsError() {
			return &StatusError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode(), Body: resp.String()}
		}
		return nil
	}
}

// FetchLocations retrieves the raw location list of the account
func (c *APIClient) FetchLocations(ctx context.Context) ([]Location, error) {
	var resp locationsResponse
	if err := c.getJSON(ctx, c.cfg.AppAPIURL+"devices/v1/locations", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	return resp.UserLocations, nil
}

// FetchDevices retrieves the categorized device inventory
func (c *APIClient) FetchDevices(ctx context.Context) (*DeviceInventory, error) {
	var inventory DeviceInventory
	if err := c.getJSON(ctx, c.cfg.ClientAPIURL+"ring_devices", nil, &inventory); err != nil {
		return nil, fmt.Errorf("failed to fetch devices: %w", err)
	}
	return &inventory, nil
}

// FetchActiveDings retrieves the currently active dings and motions
func (c *APIClient) FetchActiveDings(ctx context.Context) ([]ActiveDing, error) {
	var dings []ActiveDing
	if err := c.getJSON(ctx, c.cfg.ClientAPIURL+"dings/active", nil, &dings); err != nil {
		return nil, fmt.Errorf("failed to fetch active dings: %w", err)
	}
	return dings, nil
}

// FetchHistory retrieves recorded events across all cameras
func (c *APIClient) FetchHistory(ctx context.Context, limit int, favoritesOnly bool) ([]HistoryEvent, error) {
	query := map[string]string{}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	if favoritesOnly {
		query["favorites"] = "1"
	}

	var events []HistoryEvent
	if err := c.getJSON(ctx, c.cfg.ClientAPIURL+"doorbots/history", query, &events); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return events, nil
}

// GetRefreshToken returns the current refresh token
func (c *APIClient) GetRefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken
}
