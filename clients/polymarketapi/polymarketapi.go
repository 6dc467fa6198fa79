package polymarketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"polywatch/config"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

type PolymarketApiClient struct {
	logger      *zap.Logger
	httpClient  *http.Client
	dataBaseURL string
}

func NewPolymarketApiClient(logger *zap.Logger, cfg *config.Config) *PolymarketApiClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PolymarketApiClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dataBaseURL: cfg.Polymarket.DataAPIURL,
	}
}

// TradeParams selects the trade history of a single wallet.
type TradeParams struct {
	User      string
	Limit     int
	TakerOnly bool
}

// GetUserTrades fetches recent trades where the user took part.
// The Data API defaults takerOnly to true, so it is always sent explicitly.
//
// Elements are returned undecoded because the upstream schema is not stable;
// callers pick fields through RawTrade.
func (c *PolymarketApiClient) GetUserTrades(
	ctx context.Context,
	params TradeParams,
) ([]json.RawMessage, error) {
	user := strings.TrimSpace(params.User)
	if user == "" {
		return nil, fmt.Errorf("user is empty")
	}

	u, err := url.Parse(c.dataBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid dataBaseURL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/trades"

	q := u.Query()
	q.Set("user", user)
	if params.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", params.Limit))
	}
	q.Set("takerOnly", fmt.Sprintf("%t", params.TakerOnly))
	u.RawQuery = q.Encode()

	body, err := c.doGet(ctx, u.String())
	if err != nil {
		return nil, err
	}

	batch, err := decodeBatch(body)
	if err != nil {
		return nil, &DecodeError{Op: "get user trades", Err: err}
	}

	return batch, nil
}

// decodeBatch requires the body to be a JSON array.
func decodeBatch(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("expected JSON array, got %q", snippet(trimmed))
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return batch, nil
}

// doGet performs a GET request and returns the body of a 2xx response.
func (c *PolymarketApiClient) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode/100 != 2 {
		return nil, &TransportError{
			Op:         "request",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status=%d body=%s", resp.StatusCode, snippet(body)),
		}
	}

	return body, nil
}

func snippet(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "…"
	}
	return string(b)
}
