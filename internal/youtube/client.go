package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

var ErrNoAPIKey = errors.New("youtube: api key is required")

// Channel is a configured channel to track.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Statistics are the counters returned by the channels endpoint. The API
// sends them as decimal strings.
type Statistics struct {
	ViewCount       string `json:"viewCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

// Record is the daily row stored for one channel.
type Record struct {
	ChannelID       string  `json:"channel_id"`
	ChannelName     string  `json:"channel_name"`
	ViewCount       *string `json:"viewCount"`
	SubscriberCount *string `json:"subscriberCount"`
	VideoCount      *string `json:"videoCount"`
}

type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	return &Client{http: client, apiKey: opts.APIKey}, nil
}

// MaxIDsPerRequest is the channels endpoint's limit on ids per call.
const MaxIDsPerRequest = 50

// ChannelStatistics fetches statistics for the given channel ids, keyed by
// channel id, in batches of MaxIDsPerRequest. Unknown ids are absent from
// the result.
func (c *Client) ChannelStatistics(ctx context.Context, ids []string) (map[string]Statistics, error) {
	stats := make(map[string]Statistics, len(ids))
	for start := 0; start < len(ids); start += MaxIDsPerRequest {
		end := min(start+MaxIDsPerRequest, len(ids))
		if err := c.channelBatch(ctx, ids[start:end], stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (c *Client) channelBatch(ctx context.Context, ids []string, stats map[string]Statistics) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "statistics",
			"id":   strings.Join(ids, ","),
			"key":  c.apiKey,
		}).
		Get("/channels")
	if err != nil {
		return fmt.Errorf("youtube: channels: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("youtube: channels: http %d", res.StatusCode())
	}

	var body struct {
		Items []struct {
			ID         string     `json:"id"`
			Statistics Statistics `json:"statistics"`
		} `json:"items"`
	}
	if err := json.Unmarshal(res.Body(), &body); err != nil {
		return fmt.Errorf("youtube: decode channels: %w", err)
	}

	for _, item := range body.Items {
		stats[item.ID] = item.Statistics
	}
	return nil
}

func NewRecord(channel Channel, stats Statistics) Record {
	return Record{
		ChannelID:       channel.ID,
		ChannelName:     channel.Name,
		ViewCount:       nonEmpty(stats.ViewCount),
		SubscriberCount: nonEmpty(stats.SubscriberCount),
		VideoCount:      nonEmpty(stats.VideoCount),
	}
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
