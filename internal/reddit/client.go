package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL      = "https://www.reddit.com"
	DefaultOAuthBaseURL = "https://oauth.reddit.com"
	DefaultTokenURL     = "https://www.reddit.com/api/v1/access_token"
	DefaultUserAgent    = "pipecli/1.0 (subreddit etl)"
	DefaultLimit        = 100
)

type Options struct {
	BaseURL      string
	OAuthBaseURL string
	TokenURL     string
	ClientID     string
	ClientSecret string
	UserAgent    string
	Timeout      time.Duration
	Limit        int
}

// Client reads public listing JSON. With client credentials configured it
// switches to the OAuth host with an application-only token.
type Client struct {
	http  *resty.Client
	opts  Options
	limit int

	mu        sync.Mutex
	authed    bool
	expiresAt time.Time
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.OAuthBaseURL == "" {
		opts.OAuthBaseURL = DefaultOAuthBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = DefaultTokenURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := opts.Limit
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", opts.UserAgent)

	return &Client{http: client, opts: opts, limit: limit}
}

func (c *Client) oauth() bool {
	return c.opts.ClientID != "" && c.opts.ClientSecret != ""
}

func (c *Client) authorize(ctx context.Context) error {
	if !c.oauth() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authed && time.Now().Before(c.expiresAt) {
		return nil
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.opts.ClientID, c.opts.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		Post(c.opts.TokenURL)
	if err != nil {
		return fmt.Errorf("reddit: token: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("reddit: token: http %d", res.StatusCode())
	}
	if err := json.Unmarshal(res.Body(), &token); err != nil {
		return fmt.Errorf("reddit: token: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("reddit: token response missing access_token")
	}

	c.http.SetBaseURL(strings.TrimRight(c.opts.OAuthBaseURL, "/"))
	c.http.SetAuthToken(token.AccessToken)
	c.authed = true
	// Refresh a minute early.
	c.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.authorize(ctx); err != nil {
		return err
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("reddit: GET %s: %w", path, err)
	}
	if res.IsError() {
		return fmt.Errorf("reddit: GET %s: http %d", path, res.StatusCode())
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("reddit: decode %s: %w", path, err)
	}
	return nil
}

// TopPosts lists the top posts of subreddit over period ("day", "week", ...).
func (c *Client) TopPosts(ctx context.Context, subreddit string, period string) ([]Post, error) {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	if subreddit == "" {
		return nil, fmt.Errorf("reddit: subreddit is required")
	}
	if period == "" {
		period = "day"
	}

	var listing struct {
		Data struct {
			Children []struct {
				Kind string `json:"kind"`
				Data Post   `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/r/%s/top.json", url.PathEscape(subreddit))
	params := map[string]string{"t": period, "limit": fmt.Sprint(c.limit), "raw_json": "1"}
	if err := c.get(ctx, path, params, &listing); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// Author looks up the public profile of a redditor.
func (c *Client) Author(ctx context.Context, name string) (*Author, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "[deleted]" {
		return nil, fmt.Errorf("reddit: no author")
	}

	var about struct {
		Data Author `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("/user/%s/about.json", url.PathEscape(name)), nil, &about); err != nil {
		return nil, err
	}
	if about.Data.Name == "" {
		return nil, fmt.Errorf("reddit: author %s not found", name)
	}
	return &about.Data, nil
}
