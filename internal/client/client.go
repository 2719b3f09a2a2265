package client

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/jwalitptl/leukemia-dashboard/internal/session"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
	"github.com/jwalitptl/leukemia-dashboard/pkg/logger"
	"github.com/jwalitptl/leukemia-dashboard/pkg/metrics"
)

const (
	HeaderRequestID = "X-Request-ID"
	authScheme      = "Token"
)

// ErrNoToken is wrapped by the AuthError returned in strict mode when no
// session token is stored.
var ErrNoToken = stderrors.New("no session token")

type Config struct {
	BaseURL   string
	UserAgent string
}

// File is one part of a multipart upload.
type File struct {
	Field    string
	Filename string
	Data     []byte
}

// Client builds every outbound request to the dashboard backend. It never
// retries: a failed request is reported once to the caller.
type Client struct {
	http    *resty.Client
	store   session.Store
	strict  bool
	log     *logger.Logger
	metrics *metrics.Metrics
}

// API is the request surface the services depend on.
type API interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
	Upload(ctx context.Context, path string, files []File, fields map[string]string, out interface{}) error
}

var _ API = (*Client)(nil)

type tokenKey struct{}

// ContextWithToken makes requests issued with ctx use token instead of the
// stored one. Login uses it to fetch the identity before anything is saved.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

type Option func(*Client)

// WithStrictAuth makes protected calls fail locally with an AuthError when
// the session holds no token, instead of sending them anonymously.
func WithStrictAuth() Option {
	return func(c *Client) { c.strict = true }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l.With("api_client") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient swaps the underlying transport, e.g. for an httptest server.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.http.BaseURL
		c.http = newResty(resty.NewWithClient(hc), base)
	}
}

func New(cfg Config, store session.Store, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:8000/"
	}
	c := &Client{
		http:  newResty(resty.New(), cfg.BaseURL),
		store: store,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.UserAgent != "" {
		c.http.SetHeader("User-Agent", cfg.UserAgent)
	}
	return c
}

func newResty(r *resty.Client, baseURL string) *resty.Client {
	return r.
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
}

// Do sends a JSON request. body may be nil; out, when non-nil, receives the
// decoded 2xx response.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path)
	if err != nil {
		return err
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	return c.send(req, method, path)
}

// Upload sends a multipart/form-data POST with the given files and plain
// form fields.
func (c *Client) Upload(ctx context.Context, path string, files []File, fields map[string]string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, path)
	if err != nil {
		return err
	}
	for _, f := range files {
		req.SetFileReader(f.Field, f.Filename, bytes.NewReader(f.Data))
	}
	if len(fields) > 0 {
		req.SetFormData(fields)
	}
	if out != nil {
		req.SetResult(out)
	}
	return c.send(req, http.MethodPost, path)
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*resty.Request, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, uuid.NewString())

	if !RequiresAuth(method, path) {
		return req, nil
	}

	token, ok := ctx.Value(tokenKey{}).(string)
	if !ok {
		var err error
		if token, err = c.store.Token(ctx); err != nil {
			return nil, errors.Unauthorized(err)
		}
	}
	switch {
	case token != "":
		req.SetAuthScheme(authScheme).SetAuthToken(token)
	case c.strict:
		return nil, errors.Unauthorized(ErrNoToken)
	}
	return req, nil
}

func (c *Client) send(req *resty.Request, method, path string) error {
	route := metrics.Route(path)
	start := time.Now()

	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	if c.metrics != nil {
		c.metrics.Requests.WithLabelValues(method, route, status).Inc()
		c.metrics.RequestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
	}
	c.log.Debug("backend request",
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", elapsed.Milliseconds(),
		"request_id", req.Header.Get(HeaderRequestID),
	)

	if err != nil {
		// a status means the exchange completed and only decoding failed
		if resp != nil && resp.StatusCode() != 0 {
			return errors.Internal(resp.StatusCode(), fmt.Errorf("decode %s response: %w", path, err))
		}
		return errors.Network(err)
	}
	if resp.IsSuccess() {
		return nil
	}
	return statusError(resp.StatusCode(), path, resp.Body())
}

// ResolveURL turns a media reference such as "/media/annotated/x.jpg" into an
// absolute URL on the backend host. Absolute references are returned as is.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.http.BaseURL)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// RequiresAuth reports whether a request carries the session credential.
// Login and registration are the only anonymous endpoints.
func RequiresAuth(method, path string) bool {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	switch p {
	case "auth/token/login/", "register/":
		return false
	case "auth/users/":
		return method != http.MethodPost
	}
	return true
}
