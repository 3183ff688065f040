// Package api is the HTTP client wrapper every feature service goes through
// to reach the REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"furk/models"
	"furk/utils"

	"go.uber.org/zap"
)

// GenericMessage is shown when the backend gives us nothing better.
const GenericMessage = "Something went wrong. Please try again."

type tokenKey struct{}

// WithToken returns a context whose outgoing requests carry token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Client calls the backend and unwraps its { success, data, message } envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for baseURL. A zero timeout means 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     utils.GetLogger(),
	}
}

// Get decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.Do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// GetList decodes a paginated list and returns the envelope's count.
func (c *Client) GetList(ctx context.Context, path string, query url.Values, out any) (int, error) {
	env, err := c.Do(ctx, http.MethodGet, path, query, nil, out)
	if err != nil {
		return 0, err
	}
	return env.Count, nil
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	_, err := c.Do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	_, err := c.Do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	_, err := c.Do(ctx, http.MethodPatch, path, nil, body, out)
	return err
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil, out)
	return err
}

// Do performs one request. The identity token from ctx, if any, is sent as
// the raw Authorization header value.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) (*models.Envelope, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("api: failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := TokenFrom(ctx); tok != "" {
		req.Header.Set("Authorization", tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &Error{Method: method, Path: path, Message: GenericMessage, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: GenericMessage, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode, Message: messageFrom(raw)}
		c.logger.Debug("api error response", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	env, err := unwrap(raw)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: GenericMessage, Err: err}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = GenericMessage
		}
		return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: GenericMessage, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return env, nil
}

// unwrap decodes an envelope. Bodies that are not envelopes (a bare object or
// array) are treated as successful data, and an empty body as success with no data.
func unwrap(raw []byte) (*models.Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &models.Envelope{Success: true}, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err == nil {
		if _, ok := probe["success"]; ok {
			var env models.Envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return nil, err
			}
			return &env, nil
		}
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("response is not JSON")
	}
	return &models.Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
}

// messageFrom prefers a structured "error" string, then "message", then the generic text.
func messageFrom(raw []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return GenericMessage
	}
	var errStr string
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &errStr) == nil && errStr != "" {
		return errStr
	}
	if body.Message != "" {
		return body.Message
	}
	return GenericMessage
}

// PageQuery builds the limit/offset/keyword query every list endpoint accepts.
func PageQuery(limit, offset int, keyword string) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if keyword != "" {
		q.Set("keyword", keyword)
	}
	return q
}
