package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/garyjia/credentialing/internal/application/port"
	"go.uber.org/zap"
)

const maxErrorBody = 512

// Config holds the contracting service connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client posts contract requests to the network contracting service
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a contracting service client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// RequestContract creates a network contract for an approved application
func (c *Client) RequestContract(ctx context.Context, req port.ContractRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal contract request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contracts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", fmt.Sprintf("application-%d", req.ApplicationID))
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("contract request failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.logger.Info("Contract request accepted",
		zap.Int64("application_id", req.ApplicationID),
		zap.String("provider_id", req.ProviderID),
		zap.String("payer_id", req.PayerID),
		zap.Int("status", resp.StatusCode))
	return nil
}

// LogClient records contract requests in the log when no contracting service is configured
type LogClient struct {
	logger *zap.Logger
}

// NewLogClient creates a LogClient
func NewLogClient(logger *zap.Logger) *LogClient {
	return &LogClient{logger: logger}
}

// RequestContract logs the request and succeeds
func (c *LogClient) RequestContract(ctx context.Context, req port.ContractRequest) error {
	c.logger.Info("Contract service not configured, request logged only",
		zap.Int64("application_id", req.ApplicationID),
		zap.String("provider_id", req.ProviderID),
		zap.String("payer_id", req.PayerID),
		zap.String("effective_date", req.EffectiveDate))
	return nil
}

// Verify interface compliance
var (
	_ port.ContractClient = (*Client)(nil)
	_ port.ContractClient = (*LogClient)(nil)
)
