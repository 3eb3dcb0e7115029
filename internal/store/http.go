package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/credsync/credsync/internal/config"
	credserrors "github.com/credsync/credsync/internal/errors"
	"github.com/credsync/credsync/internal/logging"
)

// HTTPClient updates credentials through a REST management API. The API is
// session based: a login call exchanges the system credentials for a bearer
// token, and a 401 on any later call discards the token so the next attempt
// logs in again.
type HTTPClient struct {
	name      string
	baseURL   string
	loginPath string
	username  string
	password  logging.Secret
	logger    *logging.Logger
	client    *http.Client
	token     string
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient injects the underlying http.Client, used by tests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient builds a REST store client from configuration.
func NewHTTPClient(name string, cfg config.StoreConfig, username string, password logging.Secret, logger *logging.Logger, opts ...HTTPOption) (*HTTPClient, error) {
	baseURL := strings.TrimSuffix(cfg.ConfigString("base_url"), "/")
	if baseURL == "" {
		return nil, credserrors.ConfigError{
			Field:      fmt.Sprintf("stores.%s.base_url", name),
			Message:    "base_url is required for http stores",
			Suggestion: "Set 'base_url' to the management API root, e.g. https://portal.internal",
		}
	}

	client := &HTTPClient{
		name:      name,
		baseURL:   baseURL,
		loginPath: configOrDefault(cfg, "login_path", "/api/v1/session"),
		username:  username,
		password:  password,
		logger:    logger,
		client:    &http.Client{Timeout: cfg.Timeout()},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name returns the configured store name.
func (c *HTTPClient) Name() string {
	return c.name
}

// Authenticate exchanges the system credentials for a session token.
func (c *HTTPClient) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password.Reveal(),
	})
	if err != nil {
		return credserrors.StoreError{Store: c.name, Op: "authenticate", Transient: false, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.loginPath, bytes.NewReader(body))
	if err != nil {
		return credserrors.StoreError{Store: c.name, Op: "authenticate", Transient: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return credserrors.StoreError{Store: c.name, Op: "authenticate", Transient: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return credserrors.StoreError{
			Store:     c.name,
			Op:        "authenticate",
			Transient: resp.StatusCode >= 500,
			Err:       fmt.Errorf("login returned status %d", resp.StatusCode),
		}
	}

	var session struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return credserrors.StoreError{Store: c.name, Op: "authenticate", Transient: true, Err: err}
	}
	if session.Token == "" {
		return credserrors.StoreError{
			Store:     c.name,
			Op:        "authenticate",
			Transient: false,
			Err:       fmt.Errorf("login response carried no token"),
		}
	}

	c.token = session.Token
	c.logger.Debug("store %s: session established", c.name)
	return nil
}

// IsAuthenticated reports whether a session token is held.
func (c *HTTPClient) IsAuthenticated() bool {
	return c.token != ""
}

// UpdateCredential writes the hashed credential for a user record.
func (c *HTTPClient) UpdateCredential(ctx context.Context, recordID, username, hashedPassword string) error {
	body, err := json.Marshal(map[string]string{
		"username":      username,
		"password_hash": hashedPassword,
	})
	if err != nil {
		return credserrors.StoreError{Store: c.name, Op: "update credential", Transient: false, Err: err}
	}

	resp, err := c.do(ctx, http.MethodPut, c.credentialPath(recordID), bytes.NewReader(body))
	if err != nil {
		return credserrors.StoreError{Store: c.name, Op: "update credential", Transient: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.classifyStatus("update credential", recordID, resp.StatusCode); err != nil {
		return err
	}

	c.logger.Debug("store %s: updated credential for record %s", c.name, recordID)
	return nil
}

// GetCredential reads back the stored credential hash for a record.
func (c *HTTPClient) GetCredential(ctx context.Context, recordID string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.credentialPath(recordID), nil)
	if err != nil {
		return "", credserrors.StoreError{Store: c.name, Op: "get credential", Transient: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.classifyStatus("get credential", recordID, resp.StatusCode); err != nil {
		return "", err
	}

	var record struct {
		PasswordHash string `json:"password_hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return "", credserrors.StoreError{Store: c.name, Op: "get credential", Transient: true, Err: err}
	}
	return record.PasswordHash, nil
}

// Close discards the session.
func (c *HTTPClient) Close() error {
	c.token = ""
	return nil
}

func (c *HTTPClient) credentialPath(recordID string) string {
	return "/api/v1/users/" + url.PathEscape(recordID) + "/credential"
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

// classifyStatus maps an HTTP status to the retry taxonomy: 5xx is worth
// retrying, 404 means the record is gone for good, and 401 drops the session
// so the next attempt re-authenticates.
func (c *HTTPClient) classifyStatus(op, recordID string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		c.token = ""
		return credserrors.StoreError{
			Store:     c.name,
			Op:        op,
			Transient: true,
			Err:       fmt.Errorf("session expired (status 401)"),
		}
	case status == http.StatusNotFound:
		return credserrors.StoreError{
			Store:     c.name,
			Op:        op,
			Transient: false,
			Err:       fmt.Errorf("no record %s (status 404)", recordID),
		}
	case status >= 500:
		return credserrors.StoreError{
			Store:     c.name,
			Op:        op,
			Transient: true,
			Err:       fmt.Errorf("server error (status %d)", status),
		}
	default:
		return credserrors.StoreError{
			Store:     c.name,
			Op:        op,
			Transient: false,
			Err:       fmt.Errorf("request rejected (status %d)", status),
		}
	}
}
