// Package mcsync logs chat messages to mission control's webhook without
// ever failing the caller.
package mcsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openclaw/mission-control/ingest"
	"github.com/openclaw/mission-control/store"
)

// NotLogged is the ConversationID reported when delivery failed.
const NotLogged int64 = -1

const (
	attemptTimeout = 10 * time.Second
	attempts       = 2
	webhookPath    = "/api/webhook/openclaw"
)

// errUnreadable marks a 2xx response whose body could not be decoded. The
// server has already accepted the message, so it is not retried.
var errUnreadable = errors.New("unreadable webhook response")

// Result mirrors the webhook response.
type Result = ingest.Result

// Client posts messages to the webhook.
type Client struct {
	BaseURL    string
	Secret     string // signs the body when set
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New returns a client for the server at baseURL.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Logger:     logger.With(slog.String("component", "mc-sync")),
	}
}

type request struct {
	Message  string         `json:"message"`
	Role     store.Role     `json:"role"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Log delivers one message. It tries twice, each attempt bounded to 10s,
// and on failure logs a warning and returns a Result whose ConversationID
// is NotLogged.
func (c *Client) Log(ctx context.Context, message string, role store.Role, metadata map[string]any) Result {
	body, err := json.Marshal(request{Message: message, Role: role, Metadata: metadata})
	if err != nil {
		c.Logger.Warn("encode message failed", slog.Any("err", err))
		return Result{ConversationID: NotLogged}
	}

	var lastErr error
	for range attempts {
		res, err := c.attempt(ctx, body)
		if err == nil {
			return res
		}
		lastErr = err
		if errors.Is(err, errUnreadable) || ctx.Err() != nil {
			break
		}
	}
	c.Logger.Warn("webhook delivery failed", slog.Any("err", lastErr))
	return Result{ConversationID: NotLogged}
}

func (c *Client) attempt(ctx context.Context, body []byte) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+webhookPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Secret != "" {
		req.Header.Set(ingest.SignatureHeader, ingest.Sign(c.Secret, body))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("%w: %w", errUnreadable, err)
	}
	return res, nil
}
