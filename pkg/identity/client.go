// Package identity is a Go client for the identity gateway's HTTP API.
package identity

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

const DefaultAPIURL = "http://localhost:8080"

// Client is the HTTP client for the identity gateway
type Client struct {
	baseURL    string
	adminToken string
	client     *http.Client
}

type Option func(*Client)

// WithAdminToken sets the bearer token sent on admin requests.
func WithAdminToken(token string) Option {
	return func(c *Client) {
		c.adminToken = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a client for the gateway at baseURL, DefaultAPIURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignUp registers a user. Attributes keep their order.
func (c *Client) SignUp(ctx context.Context, username, password string, attrs []Attribute) (*SignUpResult, error) {
	payload := map[string]any{
		"username":   username,
		"password":   password,
		"attributes": attrs,
	}
	var result SignUpResult
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", "", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, username, code string) error {
	payload := map[string]string{"username": username, "code": code}
	return c.do(ctx, http.MethodPost, "/v1/auth/confirm", "", payload, nil)
}

// SignIn authenticates with username and password. The result holds either
// tokens or a challenge.
func (c *Client) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var result SignInResult
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signin", "", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetUser returns the user behind accessToken
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/v1/auth/me", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUserAttributes(ctx context.Context, accessToken string, attrs []Attribute) error {
	payload := map[string]any{"attributes": attrs}
	return c.do(ctx, http.MethodPut, "/v1/auth/me/attributes", accessToken, payload, nil)
}

func (c *Client) ChangePassword(ctx context.Context, accessToken, previousPassword, proposedPassword string) error {
	payload := map[string]string{
		"previous_password": previousPassword,
		"proposed_password": proposedPassword,
	}
	return c.do(ctx, http.MethodPost, "/v1/auth/me/password", accessToken, payload, nil)
}

// ForgotPassword starts a password reset and reports where the code was sent
func (c *Client) ForgotPassword(ctx context.Context, username string) (*CodeDeliveryDetails, error) {
	var result struct {
		CodeDeliveryDetails *CodeDeliveryDetails `json:"code_delivery_details"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/password/forgot", "", map[string]string{"username": username}, &result); err != nil {
		return nil, err
	}
	return result.CodeDeliveryDetails, nil
}

func (c *Client) ConfirmForgotPassword(ctx context.Context, username, code, password string) error {
	payload := map[string]string{"username": username, "code": code, "password": password}
	return c.do(ctx, http.MethodPost, "/v1/auth/password/confirm", "", payload, nil)
}

// AdminGetUser looks a user up by username. Requires WithAdminToken.
func (c *Client) AdminGetUser(ctx context.Context, username string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/v1/admin/users/"+url.PathEscape(username), c.adminToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Status == "" {
			envelope.Error = APIError{Status: http.StatusText(resp.StatusCode)}
		}
		envelope.Error.HTTPStatus = resp.StatusCode
		return &envelope.Error
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// APIError represents an API error response
type APIError struct {
	HTTPStatus int    `json:"-"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}
