// Package marketplace talks to the BeatStars studio GraphQL API and its upload service.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bosko/core/apperr"
	"bosko/logger"
)

// Config holds endpoints and limits for the client.
type Config struct {
	APIURL          string // e.g. https://core.prod.beatstars.net
	UploadURL       string // e.g. https://uppy-v4.beatstars.net
	Env             string // metadata[env] sent with upload params
	PollInterval    time.Duration
	PollAttempts    int
	MetadataTimeout time.Duration
	TransferTimeout time.Duration
}

// Client wraps the marketplace protocol. Every call is single-shot; retries belong to the caller.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 12
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = 30 * time.Second
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = 5 * time.Minute
	}
	if cfg.Env == "" {
		cfg.Env = "prod"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.UploadURL = strings.TrimRight(cfg.UploadURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

// GraphQLRequest is the POST body of every studio call.
type GraphQLRequest struct {
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables"`
	Query         string                 `json:"query"`
}

type graphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// joinErrors renders upstream errors as "msg at path a > b; msg2".
func joinErrors(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Message
		if len(e.Path) > 0 {
			parts := make([]string, len(e.Path))
			for i, p := range e.Path {
				parts[i] = fmt.Sprint(p)
			}
			msg += " at path " + strings.Join(parts, " > ")
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

// call posts one operation and decodes data into out.
func (c *Client) call(ctx context.Context, token, op string, vars map[string]interface{}, query string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MetadataTimeout)
	defer cancel()

	if vars == nil {
		vars = map[string]interface{}{}
	}
	body, err := json.Marshal(GraphQLRequest{OperationName: op, Variables: vars, Query: query})
	if err != nil {
		return apperr.Internal("encode "+op, err)
	}

	endpoint := c.cfg.APIURL + "/studio/graphql?op=" + url.QueryEscape(op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.Internal("build "+op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Protocol("marketplace "+op+" request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperr.Protocol("marketplace "+op+" read failed", err)
	}

	logger.Debug("marketplace call",
		logger.String("op", op),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Protocol(
			fmt.Sprintf("marketplace %s returned HTTP %d", op, resp.StatusCode),
			errors.New(snippet(raw)))
	}

	var gr graphQLResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return apperr.Protocol("marketplace "+op+" returned invalid JSON", err)
	}
	if len(gr.Errors) > 0 {
		return apperr.Protocol("marketplace "+op+" failed: "+joinErrors(gr.Errors), nil)
	}
	if out == nil {
		return nil
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return apperr.Protocol("marketplace "+op+" returned no data", nil)
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return apperr.Protocol("marketplace "+op+" returned unexpected data", err)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}
