package repository

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

	"github.com/locvowork/conductores_admin/internal/domain"
	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/metrics"
)

type contextKey string

const authorizationKey contextKey = "authorization"

// WithAuthorization stores the caller's Authorization header so upstream calls can forward it.
func WithAuthorization(ctx context.Context, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, authorizationKey, value)
}

func authorizationFrom(ctx context.Context) string {
	v, _ := ctx.Value(authorizationKey).(string)
	return v
}

// Client talks to the conductores REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	// streamClient serves binary downloads. Its timeout covers the response
	// headers only so long bodies are not cut off mid-stream.
	streamClient *http.Client
	metrics      *metrics.Metrics
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for every call, downloads included (for testing).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithMetrics records upstream latency and failures.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client rooted at baseURL (scheme and host, optional path prefix).
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	streaming := http.DefaultTransport.(*http.Transport).Clone()
	streaming.ResponseHeaderTimeout = timeout
	c := &Client{
		baseURL:      u,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{Transport: streaming},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the shape every JSON reply shares.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors"`
	Data    json.RawMessage     `json:"data"`
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	header      http.Header
	stream      bool
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + r.path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if auth := authorizationFrom(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req, nil
}

// send executes the request. Non-2xx replies are turned into rejected errors;
// on success the caller owns the response body.
func (c *Client) send(ctx context.Context, r request) (resp *http.Response, err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveUpstream(r.op, start, string(domain.KindOf(err)))
	}()

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	hc := c.httpClient
	if r.stream {
		hc = c.streamClient
	}
	resp, err = hc.Do(req)
	if err != nil {
		logger.ErrorLog(ctx, fmt.Sprintf("upstream %s failed", r.op), err)
		return nil, domain.NewNetworkError("No se pudo conectar con el servidor", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, rejection(resp)
	}
	return resp, nil
}

// sendJSON executes the request and decodes the envelope. A 2xx reply with
// success=false is still a rejection.
func (c *Client) sendJSON(ctx context.Context, r request) (*envelope, []byte, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, domain.NewNetworkError("Respuesta incompleta del servidor", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, domain.NewNetworkError("Respuesta inválida del servidor", err)
	}
	if !env.Success {
		return nil, nil, &domain.APIError{
			Kind:    domain.KindRejected,
			Status:  resp.StatusCode,
			Message: firstNonEmpty(env.Message, "La operación fue rechazada"),
			Fields:  env.Errors,
		}
	}
	return &env, raw, nil
}

func rejection(resp *http.Response) error {
	var env envelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &env)

	kind := domain.KindRejected
	if resp.StatusCode == http.StatusNotFound {
		kind = domain.KindNotFound
	}
	return &domain.APIError{
		Kind:    kind,
		Status:  resp.StatusCode,
		Message: firstNonEmpty(env.Message, http.StatusText(resp.StatusCode)),
		Fields:  env.Errors,
	}
}

func decodeData(env *envelope, out interface{}) error {
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return domain.NewNotFoundError("El servidor no devolvió datos")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domain.NewNetworkError("Respuesta inválida del servidor", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool {
	return errors.Is(err, &domain.APIError{Kind: domain.KindNetwork})
}
