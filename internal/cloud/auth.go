package cloud

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // the vendor API requires the legacy MD5 password digest
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// loginPath is the HTTPS endpoint that exchanges credentials for an
	// access token.
	loginPath = "/api/oauth/login"

	// deviceListPath is the HTTPS endpoint that enumerates the account's
	// devices with their control metadata and last-reported state.
	deviceListPath = "/api/user-device/device/list"

	// defaultRequestTimeout bounds a single API request.
	defaultRequestTimeout = 15 * time.Second

	// maxResponseSize caps API response bodies (1MB).
	maxResponseSize = 1024 * 1024
)

// Config holds cloud API client configuration.
type Config struct {
	// Email is the account email address.
	Email string

	// Password is the account password in the clear. The client digests it
	// before it goes on the wire.
	Password string

	// Server is the regional API host (e.g. "app-api-us.dreo-cloud.com").
	// A value containing "://" is used verbatim as the base URL.
	Server string

	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client
}

// Client talks to the vendor cloud REST API. It authenticates once via
// Login and then carries the issued access token on every request.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	baseURL string

	tokenMu sync.RWMutex
	token   string
}

// NewClient creates a cloud API client. No network traffic happens until
// Login is called.
//
// Returns:
//   - *Client: Client ready for Login
//   - error: ErrInvalidConfig if required fields are missing
func NewClient(cfg Config) (*Client, error) {
	if cfg.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidConfig)
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidConfig)
	}
	if cfg.Server == "" {
		return nil, fmt.Errorf("%w: server is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		baseURL: baseURL(cfg.Server),
	}, nil
}

// baseURL normalizes the configured server into a base URL. Bare hosts get
// the https scheme; values that already carry a scheme pass through so
// tests can point the client at a local server.
func baseURL(server string) string {
	if strings.Contains(server, "://") {
		return strings.TrimSuffix(server, "/")
	}
	return "https://" + server
}

// apiEnvelope is the common response wrapper. A zero code means success;
// anything else carries a human-readable message in msg.
type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// loginRequest is the login request body. The password travels as a hex
// MD5 digest, never in the clear.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginData is the data payload of a successful login response.
type loginData struct {
	AccessToken string `json:"access_token"`
}

// Login authenticates against the cloud and stores the issued access
// token for subsequent requests.
//
// Parameters:
//   - ctx: Context for cancellation and deadline
//
// Returns:
//   - error: ErrAuthFailed if the credentials are rejected,
//     ErrRequestFailed if the request itself fails
func (c *Client) Login(ctx context.Context) error {
	body := loginRequest{
		Email:    c.cfg.Email,
		Password: passwordDigest(c.cfg.Password),
	}

	data, err := c.post(ctx, loginPath, body)
	if err != nil {
		return err
	}

	var login loginData
	if err := json.Unmarshal(data, &login); err != nil {
		return fmt.Errorf("%w: decode login response: %w", ErrRequestFailed, err)
	}
	if login.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}

	c.tokenMu.Lock()
	c.token = login.AccessToken
	c.tokenMu.Unlock()

	return nil
}

// Token returns the current access token, or empty before Login.
func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// passwordDigest computes the hex MD5 digest the login endpoint expects.
func passwordDigest(password string) string {
	sum := md5.Sum([]byte(password)) //nolint:gosec // vendor protocol requirement
	return hex.EncodeToString(sum[:])
}

// post sends a JSON request body and returns the envelope's data payload.
func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrRequestFailed, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(encoded))
}

// get sends a GET request and returns the envelope's data payload.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// do executes one API request and unwraps the response envelope.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrRequestFailed, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: HTTP %d", ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", ErrRequestFailed, err)
	}
	if envelope.Code != 0 {
		if path == loginPath {
			return nil, fmt.Errorf("%w: %s (code %d)", ErrAuthFailed, envelope.Msg, envelope.Code)
		}
		return nil, fmt.Errorf("%w: %s (code %d)", ErrRequestFailed, envelope.Msg, envelope.Code)
	}

	return envelope.Data, nil
}
