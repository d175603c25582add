package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultEndpoint is the global Kasa cloud endpoint. Regional
	// endpoints answer faster for accounts homed there.
	DefaultEndpoint = "https://wap.tplinkcloud.com"

	// DefaultTimeout is the HTTP request timeout for cloud calls.
	DefaultTimeout = 10 * time.Second

	// appType identifies the client to the cloud API. The API rejects
	// logins without a recognized app type.
	appType = "Kasa_Android"
)

// Endpoints lists the known cloud endpoints, global first. When no
// endpoint is configured, Login tries them in order.
var Endpoints = []string{
	DefaultEndpoint,
	"https://eu-wap.tplinkcloud.com",
	"https://use1-wap.tplinkcloud.com",
}

// APIError is a non-zero error_code returned by the cloud API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cloud API error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("cloud API error %d", e.Code)
}

// Device is one entry from the account's device list.
type Device struct {
	Alias      string `json:"alias"`
	DeviceID   string `json:"deviceId"`
	DeviceMAC  string `json:"deviceMac"`
	DeviceType string `json:"deviceType"`
	Model      string `json:"deviceModel"`
	SWVersion  string `json:"fwVer"`
	Status     int    `json:"status"`
	AppServer  string `json:"appServerUrl"`
}

// Online reports whether the cloud considers the device connected.
func (d Device) Online() bool { return d.Status == 1 }

// Client is an authenticated session against one cloud endpoint.
type Client struct {
	// Endpoint is the base URL of the cloud API. Empty means Login
	// will try the known endpoints in order.
	Endpoint string

	// HTTPClient is the underlying HTTP client.
	HTTPClient *http.Client

	token        string
	terminalUUID string
}

// NewClient creates an unauthenticated cloud client. An empty endpoint
// selects automatic endpoint fallback during Login.
func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint:     endpoint,
		HTTPClient:   &http.Client{Timeout: DefaultTimeout},
		terminalUUID: uuid.NewString(),
	}
}

// request is the JSON-RPC-style envelope every cloud call uses.
type request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ErrorCode int             `json:"error_code"`
	Message   string          `json:"msg,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type loginParams struct {
	AppType       string `json:"appType"`
	CloudUserName string `json:"cloudUserName"`
	CloudPassword string `json:"cloudPassword"`
	TerminalUUID  string `json:"terminalUUID"`
}

type loginResult struct {
	Token string `json:"token"`
}

type deviceListResult struct {
	DeviceList []Device `json:"deviceList"`
}

// Login authenticates against the cloud and stores the session token.
// When no endpoint is configured it tries each known endpoint in order
// and keeps the first that answers; an API-level rejection (bad
// credentials) stops the fallback immediately since every endpoint
// shares the account database.
func (c *Client) Login(ctx context.Context, username, password string) error {
	endpoints := Endpoints
	if c.Endpoint != "" {
		endpoints = []string{c.Endpoint}
	}

	params := loginParams{
		AppType:       appType,
		CloudUserName: username,
		CloudPassword: password,
		TerminalUUID:  c.terminalUUID,
	}

	var lastErr error
	for _, endpoint := range endpoints {
		var result loginResult
		err := c.call(ctx, endpoint, "", request{Method: "login", Params: params}, &result)
		if err == nil {
			c.Endpoint = endpoint
			c.token = result.Token
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("login rejected: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("no cloud endpoint reachable: %w", lastErr)
}

// DeviceList fetches the devices bound to the logged-in account.
func (c *Client) DeviceList(ctx context.Context) ([]Device, error) {
	if c.token == "" {
		return nil, fmt.Errorf("not logged in")
	}

	var result deviceListResult
	if err := c.call(ctx, c.Endpoint, c.token, request{Method: "getDeviceList"}, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch device list: %w", err)
	}
	return result.DeviceList, nil
}

// call performs one cloud API round trip and decodes result into out.
func (c *Client) call(ctx context.Context, endpoint, token string, req request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	target := endpoint
	if token != "" {
		target = endpoint + "?token=" + url.QueryEscape(token)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope response
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if envelope.ErrorCode != 0 {
		return &APIError{Code: envelope.ErrorCode, Message: envelope.Message}
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}
