package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/entropix/entropy-certify/internal/errors"
)

const maxResponseBodyBytes = 1 << 20 // 1MB cap on executor responses

// ClientOptions configures the shared executor HTTP client.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSupplier // nil disables auth
	Logger     *slog.Logger
}

// client carries the HTTP plumbing shared by both suite adapters: bearer
// auth, JSON round-tripping, and the error taxonomy that separates a suite
// that is down from a suite that rejected the call.
type client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSupplier
	logger  *slog.Logger
}

func newClient(name string, opts ClientOptions) (*client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%s: base URL is required", name)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		baseURL: opts.BaseURL,
		http:    hc,
		tokens:  opts.Tokens,
		logger:  logger.With("component", name),
	}, nil
}

// postJSON sends the request body and decodes the response into out.
//
// Connection failures and 502/503/504 classify as executor_unavailable; any
// other non-2xx status classifies as executor_call. A token supplier failure
// is a hard call failure: the chunk fails rather than going out unsigned.
func (c *client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode executor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create executor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, tokenErr := c.tokens.Token(ctx)
		if tokenErr != nil {
			return apperrors.Wrap(tokenErr, apperrors.ErrCodeExecutorCall, "resolve executor token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "executor call deadline exceeded")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeExecutorUnavailable, "executor unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExecutorCall, "read executor response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return apperrors.ExecutorUnavailable(fmt.Sprintf("executor returned %s", resp.Status))
	default:
		c.logger.DebugContext(ctx, "executor call rejected", "status", resp.Status, "body_bytes", len(respBody))
		return apperrors.ExecutorCall(fmt.Sprintf("executor returned %s", resp.Status))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExecutorCall, "decode executor response")
	}
	return nil
}
