package transport

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
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/recipebook/internal/client/api"
	"github.com/dmitrijs2005/recipebook/internal/logging"
	"github.com/dmitrijs2005/recipebook/internal/metrics"
)

const (
	defaultUserAgent = "recipebook-cli"
	maxResponseBytes = 10 << 20

	headerRequestID = "X-Request-ID"
)

// TokenSource yields the bearer token to attach to a request. It is read on
// every call, so a login or logout is visible to the very next request.
type TokenSource interface {
	Token() string
}

// UnauthorizedHandler tears the session down when the server rejects the
// credentials of a request.
type UnauthorizedHandler interface {
	Expire(ctx context.Context)
}

// Transport sends requests to the recipe API and normalizes the replies.
// It is safe for concurrent use.
type Transport struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
	userAgent  string

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
}

// Option configures a Transport.
type Option func(*Transport)

func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.httpClient = c }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(t *Transport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New returns a Transport for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	t := &Transport{
		baseURL:    u,
		httpClient: &http.Client{},
		logger:     logging.Nop(),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// SetAuth binds the token source and the unauthorized handler. The session
// store is usually built on top of the transport, so this happens after New.
func (t *Transport) SetAuth(tokens TokenSource, onUnauthorized UnauthorizedHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = tokens
	t.onUnauthorized = onUnauthorized
}

func (t *Transport) auth() (TokenSource, UnauthorizedHandler) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens, t.onUnauthorized
}

type request struct {
	query  url.Values
	header http.Header
}

// RequestOption adjusts a single request.
type RequestOption func(*request)

// WithQuery adds query parameters. Empty values are skipped.
func WithQuery(q url.Values) RequestOption {
	return func(r *request) {
		for k, vs := range q {
			for _, v := range vs {
				if v != "" {
					r.query.Add(k, v)
				}
			}
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(r *request) { r.header.Set(key, value) }
}

// Send performs method on path, relative to the base URL. See the package
// documentation for body encoding.
//
// The returned error is api.ErrCanceled when ctx was cancelled, and an
// *api.Error for every other failure.
func (t *Transport) Send(ctx context.Context, method, path string, body any, opts ...RequestOption) (*api.Result, error) {
	r := request{query: url.Values{}, header: http.Header{}}
	for _, opt := range opts {
		opt(&r)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, failure(ctx, err)
		}
	}

	req, err := t.newRequest(ctx, method, path, body, &r)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(headerRequestID)
	log := t.logger.With("method", method, "path", path, "request_id", requestID)

	done := metrics.RequestStarted(method)
	start := time.Now()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		err = failure(ctx, err)
		done(statusOf(err))
		log.Debug(ctx, "api request failed", "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = failure(ctx, err)
		done(statusOf(err))
		log.Debug(ctx, "api response read failed", "status", resp.StatusCode, "error", err)
		return nil, err
	}
	done(metrics.StatusLabel(resp.StatusCode))
	log.Debug(ctx, "api request", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, t.reject(ctx, api.NormalizeError(resp.StatusCode, raw))
	}

	res := api.Normalize(raw)
	if res.Kind == api.KindError {
		return nil, t.reject(ctx, api.NormalizeError(resp.StatusCode, raw))
	}
	return &res, nil
}

func (t *Transport) newRequest(ctx context.Context, method, path string, body any, r *request) (*http.Request, error) {
	u := t.baseURL.JoinPath(path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, api.NewError(0, api.CodeUnknown, fmt.Sprintf("encode request body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, api.NewError(0, api.CodeUnknown, fmt.Sprintf("build request: %v", err))
	}

	for k, vs := range r.header {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set(headerRequestID, uuid.NewString())

	if tokens, _ := t.auth(); tokens != nil {
		if tok := tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// encodeBody returns the request body and the Content-Type it needs. Raw
// readers and byte slices go out without a Content-Type.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, "", err
		}
		return buf, ct, nil
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(buf), "application/json", nil
	}
}

// reject runs the unauthorized teardown when apiErr calls for it and
// returns apiErr.
func (t *Transport) reject(ctx context.Context, apiErr *api.Error) error {
	if apiErr.IsUnauthorized() {
		if _, h := t.auth(); h != nil {
			h.Expire(context.WithoutCancel(ctx))
		}
	}
	return apiErr
}

// failure classifies an error that happened before a response was read.
func failure(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return api.Canceled(err)
	}
	return api.NetworkError(err)
}

func statusOf(err error) string {
	if api.IsCanceled(err) {
		return metrics.StatusCanceled
	}
	return metrics.StatusNetwork
}
