// Package apiclient provides a REST API client for the vaultfs CLI and
// test harnesses.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the VaultFS API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a new API client for the given base URL, e.g.
// "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a new client with the given bearer token.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		token:      token,
	}
}

// SetToken sets the authentication token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the server base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs an HTTP request and decodes the response.
func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.send(req, result)
}

// send runs a prepared request, maps error statuses onto APIError and
// decodes a success body into result when given.
func (c *Client) send(req *http.Request, result any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// get performs a GET request.
func (c *Client) get(path string, result any) error {
	return c.do(http.MethodGet, path, nil, result)
}

// post performs a POST request.
func (c *Client) post(path string, body, result any) error {
	return c.do(http.MethodPost, path, body, result)
}

// delete performs a DELETE request. An optional body carries bulk
// payloads (id lists with flags).
func (c *Client) delete(path string, body, result any) error {
	return c.do(http.MethodDelete, path, body, result)
}
