package salesforce

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

	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/model"
)

// Client drives the Salesforce REST and tooling APIs. Every call takes the
// access token explicitly; the caller owns token refresh.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(logger zerolog.Logger, baseURL, apiVersion string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "salesforce").Logger(),
	}
}

type queryResult[T any] struct {
	TotalSize int  `json:"totalSize"`
	Done      bool `json:"done"`
	Records   []T  `json:"records"`
}

type createResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// dataPath builds /services/data/<version>/<suffix>.
func (c *Client) dataPath(suffix string) string {
	return fmt.Sprintf("/services/data/%s/%s", c.apiVersion, suffix)
}

func queryPath(prefix, soql string) string {
	return prefix + "?" + url.Values{"q": {soql}}.Encode()
}

// quote escapes a value for use inside a single-quoted SOQL literal.
func quote(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

// do issues a bearer-authenticated JSON request and returns the response
// body. Non-2xx responses become model.HTTPStatusError, or
// model.AuthExpiredError for 401.
func (c *Client) do(ctx context.Context, op, method, path, accessToken string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", path).Msg(op)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewStatusError(op, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}
