package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNoCredentials = errors.New("api: no token or username/password configured")

const (
	DefaultTimeout = 30 * time.Second
	tokenResource  = "api-token-auth/"
)

// StatusError reports a non-2xx answer from the central API.
type StatusError struct {
	Method   string
	Resource string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api: %s %s: http %d", e.Method, e.Resource, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

type Options struct {
	BaseURL  string
	Token    string
	Username string
	Password string
	Timeout  time.Duration
}

// Filters narrow a GET. Empty fields are not sent.
type Filters struct {
	StartDate string
	EndDate   string
	Params    map[string]string
}

func (f Filters) query() map[string]string {
	out := map[string]string{}
	if f.StartDate != "" {
		out["Start-Date"] = f.StartDate
	}
	if f.EndDate != "" {
		out["End-Date"] = f.EndDate
	}
	for key, value := range f.Params {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

// Client talks to the central API with token authentication.
type Client struct {
	http *resty.Client
	opts Options

	mu    sync.Mutex
	token string
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: base url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(base)
	client.SetTimeout(timeout)
	client.SetHeader("accept", "application/json")

	return &Client{http: client, opts: opts, token: opts.Token}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// Token returns the auth token, exchanging username and password for one on
// first use.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	if c.opts.Username == "" || c.opts.Password == "" {
		return "", ErrNoCredentials
	}

	var body struct {
		Token string `json:"token"`
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.opts.Username,
			"password": c.opts.Password,
		}).
		Post(tokenResource)
	if err != nil {
		return "", fmt.Errorf("api: token request: %w", err)
	}
	if res.IsError() {
		return "", statusError(res, tokenResource)
	}
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return "", fmt.Errorf("api: decode token: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("api: token response missing token")
	}

	c.token = body.Token
	return c.token, nil
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+token), nil
}

// Get reads resource and returns the JSON body as a table keyed by id.
func (c *Client) Get(ctx context.Context, resource string, filters Filters) (*Table, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	res, err := req.SetQueryParams(filters.query()).Get(resource)
	if err != nil {
		return nil, fmt.Errorf("api: GET %s: %w", resource, err)
	}
	if res.IsError() {
		return nil, statusError(res, resource)
	}

	table, err := DecodeTable(IDField, res.Body())
	if err != nil {
		return nil, fmt.Errorf("api: GET %s: %w", resource, err)
	}
	return table, nil
}

// Post writes records as a JSON body and returns the response status.
func (c *Client) Post(ctx context.Context, resource string, records any) (int, error) {
	req, err := c.request(ctx)
	if err != nil {
		return 0, err
	}

	res, err := req.
		SetHeader("content-type", "application/json").
		SetBody(records).
		Post(resource)
	if err != nil {
		return 0, fmt.Errorf("api: POST %s: %w", resource, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		return res.StatusCode(), statusError(res, resource)
	}
	return res.StatusCode(), nil
}

func statusError(res *resty.Response, resource string) *StatusError {
	body := strings.TrimSpace(res.String())
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return &StatusError{
		Method:   res.Request.Method,
		Resource: resource,
		Status:   res.StatusCode(),
		Body:     body,
	}
}
