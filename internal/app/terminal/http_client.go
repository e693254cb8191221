package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"tillsync/internal/app/terminal/config"
	"tillsync/internal/domain/device"
	"tillsync/internal/domain/sync"
)

// BackendClient speaks to the authoritative backend: order ingestion,
// pairing, reference data, and the connectivity probe.
type BackendClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewBackendClient(cfg *config.Config, log *slog.Logger) *BackendClient {
	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 4,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &BackendClient{
		client:    client,
		log:       log,
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "tillsync-terminal/1.0",
	}
}

// Ping is the lightweight active connectivity probe. Passive signals lie on
// captive and degraded networks; this does not.
func (c *BackendClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sync.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: probe returned status %d", sync.ErrNetwork, resp.StatusCode)
	}
	return nil
}

// SubmitOrder posts one operation envelope. A returned *SubmitResponse means
// the backend gave a verdict; an error means the attempt is unresolved and
// the order must go back to PENDING.
func (c *BackendClient) SubmitOrder(ctx context.Context, env sync.Envelope) (*sync.SubmitResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/sync/offline-orders/", env)
	if err != nil {
		return nil, err
	}

	var result sync.SubmitResponse
	if err := c.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RequestActivationCode implements device.Backend.
func (c *BackendClient) RequestActivationCode(ctx context.Context, fingerprint string) (*device.ActivationCode, error) {
	body := struct {
		Fingerprint string `json:"fingerprint"`
	}{Fingerprint: fingerprint}

	resp, err := c.doRequest(ctx, http.MethodPost, "/pairing/activation-code", body)
	if err != nil {
		return nil, err
	}

	var code device.ActivationCode
	if err := c.parseResponse(resp, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// PollApproval implements device.Backend.
func (c *BackendClient) PollApproval(ctx context.Context, fingerprint string) (*device.ApprovalStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/pairing/approval/"+fingerprint, nil)
	if err != nil {
		return nil, err
	}

	var status device.ApprovalStatus
	if err := c.parseResponse(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchReferenceData pulls dataset versions and the staff credential dump
// used to refresh the offline caches.
func (c *BackendClient) FetchReferenceData(ctx context.Context) (*sync.ReferenceData, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/reference-data", nil)
	if err != nil {
		return nil, err
	}

	var data sync.ReferenceData
	if err := c.parseResponse(resp, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *BackendClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrNetwork, err)
	}
	return resp, nil
}

func (c *BackendClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", sync.ErrNetwork, err)
	}

	c.log.Debug("received response", "status", resp.StatusCode)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: server returned status %d", sync.ErrNetwork, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
