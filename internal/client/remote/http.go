package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/logging"
)

const maxResponseBytes = 8 << 20

// HTTPClient implements Client over the JSON HTTP API.
type HTTPClient struct {
	base *url.URL
	hc   *http.Client
	opts Options
	log  logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the API rooted at baseURL. hc may be nil.
func NewHTTPClient(baseURL string, hc *http.Client, opts Options) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if hc == nil {
		hc = &http.Client{}
	}
	opts = opts.withDefaults()
	return &HTTPClient{base: u, hc: hc, opts: opts, log: opts.Logger.With("component", "remote.http")}, nil
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

// request describes one HTTP call; body is re-read on a retry after refresh.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	anonymous   bool
}

func jsonRequest(method, path string, v any) (request, error) {
	r := request{method: method, path: path}
	if v == nil {
		return r, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("encode request: %w", err)
	}
	r.body = b
	r.contentType = "application/json"
	return r, nil
}

func doHTTP[T any](ctx context.Context, c *HTTPClient, r request) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	token, err := c.token(ctx, r)
	if err != nil {
		return authFailure[T](err)
	}

	resp, err := c.send(ctx, r, token)
	if err != nil {
		return TransportError[T](err)
	}

	if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) &&
		!r.anonymous && c.opts.Tokens != nil {
		drain(resp)
		c.log.Info(ctx, "access token rejected, refreshing", "path", r.path, "status", resp.StatusCode)

		token, err = c.opts.Tokens.Refresh(ctx, token, c.refresh)
		if err != nil {
			return authFailure[T](err)
		}
		resp, err = c.send(ctx, r, token)
		if err != nil {
			return TransportError[T](err)
		}
	}
	defer drain(resp)

	return decodeHTTP[T](resp)
}

// authFailure keeps a refresh that could not reach the server retryable.
func authFailure[T any](err error) Result[T] {
	if IsRetryable(err) {
		return TransportError[T](err)
	}
	return unauthorized[T](err.Error())
}

func (c *HTTPClient) token(ctx context.Context, r request) (string, error) {
	if r.anonymous || c.opts.Tokens == nil {
		return "", nil
	}
	return c.opts.Tokens.AccessToken(ctx, c.refresh)
}

func (c *HTTPClient) send(ctx context.Context, r request, token string) (*http.Response, error) {
	u := c.base.ResolveReference(&url.URL{Path: r.path})
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return c.hc.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}

// decodeHTTP classifies a response: 5xx and 429 are transport failures, other
// 4xx and envelopes with a non-2xx status are business failures.
func decodeHTTP[T any](resp *http.Response) Result[T] {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TransportError[T](fmt.Errorf("read response: %w", err))
	}

	var env Envelope[T]
	decodeErr := json.Unmarshal(b, &env)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return TransportError[T](fmt.Errorf("server returned %s: %s", resp.Status, messageOr(env.Message, b)))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return unauthorized[T](messageOr(env.Message, b))
	case resp.StatusCode >= http.StatusBadRequest:
		return BusinessError[T](messageOr(env.Message, b))
	}

	if decodeErr != nil {
		return TransportError[T](fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr))
	}
	if env.Status != 0 && (env.Status < 200 || env.Status > 299) {
		return BusinessError[T](messageOr(env.Message, []byte(strconv.Itoa(env.Status))))
	}
	return Success(env.Data)
}

func messageOr(msg string, body []byte) string {
	if msg != "" {
		return msg
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "empty response"
	}
	return s
}

func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	r, err := jsonRequest(http.MethodPost, "auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return Tokens{}, err
	}
	r.anonymous = true
	return doHTTP[Tokens](ctx, c, r).Get()
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	r := request{method: http.MethodGet, path: "health", anonymous: true}
	return doHTTP[json.RawMessage](ctx, c, r).Err()
}

func (c *HTTPClient) ListBudgets(ctx context.Context, page int) Result[Page[Budget]] {
	r := request{method: http.MethodGet, path: "budgets/list", query: url.Values{"page": {strconv.Itoa(page)}}}
	return doHTTP[Page[Budget]](ctx, c, r)
}

func (c *HTTPClient) CreateBudget(ctx context.Context, p BudgetPayload) Result[Budget] {
	return sendJSON[Budget](ctx, c, http.MethodPost, "budgets/create", p)
}

func (c *HTTPClient) UpdateBudget(ctx context.Context, id string, p BudgetPayload) Result[Budget] {
	return sendJSON[Budget](ctx, c, http.MethodPut, "budgets/"+url.PathEscape(id), p)
}

func (c *HTTPClient) DeleteBudget(ctx context.Context, id string) Result[struct{}] {
	return ack(doHTTP[json.RawMessage](ctx, c, request{method: http.MethodDelete, path: "budgets/" + url.PathEscape(id)}))
}

func (c *HTTPClient) ListTransactions(ctx context.Context, page int) Result[Page[Transaction]] {
	return sendJSON[Page[Transaction]](ctx, c, http.MethodPost, "transactions/list", TransactionListRequest{Page: page})
}

func (c *HTTPClient) CreateTransaction(ctx context.Context, p TransactionPayload) Result[Transaction] {
	return sendJSON[Transaction](ctx, c, http.MethodPost, "transactions/create", p)
}

func (c *HTTPClient) UpdateTransaction(ctx context.Context, id string, p TransactionPayload) Result[Transaction] {
	return sendJSON[Transaction](ctx, c, http.MethodPut, "transactions/"+url.PathEscape(id), p)
}

func (c *HTTPClient) DeleteTransaction(ctx context.Context, id string) Result[struct{}] {
	return ack(doHTTP[json.RawMessage](ctx, c, request{method: http.MethodDelete, path: "transactions/" + url.PathEscape(id)}))
}

// UploadAttachment posts data as the multipart field "image".
func (c *HTTPClient) UploadAttachment(ctx context.Context, name string, data []byte) Result[Attachment] {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		return TransportError[Attachment](fmt.Errorf("build upload: %w", err))
	}
	if _, err := fw.Write(data); err != nil {
		return TransportError[Attachment](fmt.Errorf("build upload: %w", err))
	}
	if err := mw.Close(); err != nil {
		return TransportError[Attachment](fmt.Errorf("build upload: %w", err))
	}

	r := request{
		method:      http.MethodPost,
		path:        "upload/image",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	res := doHTTP[Attachment](ctx, c, r)
	if res.OK() && res.Value().URL == "" {
		return TransportError[Attachment](fmt.Errorf("%w: upload returned no image_url", ErrMalformedResponse))
	}
	return res
}

func sendJSON[T any](ctx context.Context, c *HTTPClient, method, path string, v any) Result[T] {
	r, err := jsonRequest(method, path, v)
	if err != nil {
		return BusinessError[T](err.Error())
	}
	return doHTTP[T](ctx, c, r)
}

func ack[T any](r Result[T]) Result[struct{}] {
	return Then(r, func(T) struct{} { return struct{}{} })
}

// IsUnauthorized reports whether err came from a rejected credential.
func IsUnauthorized(err error) bool {
	return errors.Is(err, common.ErrUnauthorized)
}
