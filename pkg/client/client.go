// Package client is a thin REST client for the marketplace access API. It is
// the transport the session store, access gate and recovery controller ride
// on; it holds a bearer token but persists nothing itself.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/marketplace-access/pkg/util/errorutil"
)

const (
	defaultTimeout = 15 * time.Second

	// Idempotent reads are retried on transport failure; writes never are.
	maxReadAttempts = 3
	retryBackoff    = 200 * time.Millisecond
)

// Client talks to the REST boundary.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

// New builds a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken installs the bearer credential used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer credential.
func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates and returns the token plus identity.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Data struct {
			Identity Identity `json:"identity"`
			Auth     struct {
				Token     string    `json:"token"`
				ExpiresAt time.Time `json:"expires_at"`
			} `json:"auth"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     out.Data.Auth.Token,
		ExpiresAt: out.Data.Auth.ExpiresAt,
		Identity:  out.Data.Identity,
	}, nil
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, false)
}

// Me returns the identity bound to the current token.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var out struct {
		Data struct {
			Identity Identity `json:"identity"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out.Data.Identity, nil
}

// ForgotPassword requests a recovery code. The server acknowledges
// generically whether or not the address is registered.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil, false)
}

// ResetPassword redeems a recovery code and sets the new credential.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword, confirmPassword string) error {
	body := map[string]string{
		"email":                     email,
		"code":                      code,
		"new_password":              newPassword,
		"new_password_confirmation": confirmPassword,
	}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", body, nil, false)
}

// ListComplaints fetches one page of complaints visible to the caller.
func (c *Client) ListComplaints(ctx context.Context, query ComplaintListQuery) (*ComplaintPage, error) {
	values := url.Values{}
	if query.Status != "" {
		values.Set("status", query.Status)
	}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(query.PageSize))
	}
	path := "/complaints"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out ComplaintPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetComplaint fetches a single complaint.
func (c *Client) GetComplaint(ctx context.Context, id string) (*Complaint, error) {
	var out struct {
		Data Complaint `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/complaints/"+id, nil, &out, true); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// SubmitComplaint files a new complaint.
func (c *Client) SubmitComplaint(ctx context.Context, input SubmitComplaintInput) (*Complaint, error) {
	var out struct {
		Data Complaint `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/complaints", input, &out, false); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ApplyComplaintAction requests one lifecycle transition.
func (c *Client) ApplyComplaintAction(ctx context.Context, id string, input ComplaintActionInput) (*Complaint, error) {
	var out struct {
		Data Complaint `json:"data"`
	}
	if err := c.do(ctx, http.MethodPatch, "/complaints/"+id, input, &out, false); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, idempotent bool) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = encoded
	}

	attempts := 1
	if idempotent {
		attempts = maxReadAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errorutil.NewTransport("request cancelled", ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if !errorutil.IsKind(err, errorutil.KindTransport) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errorutil.NewTransport("build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errorutil.NewTransport("request failed", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errorutil.NewTransport("decode response", err)
		}
		return nil
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
		return errorutil.NewTransport(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return errorutil.FromWire(envelope.Error.Code, envelope.Error.Message, resp.StatusCode)
}
