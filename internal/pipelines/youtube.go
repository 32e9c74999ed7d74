package pipelines

import (
	"context"
	"fmt"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/youtube"
)

type StatisticsSource interface {
	ChannelStatistics(ctx context.Context, ids []string) (map[string]youtube.Statistics, error)
}

// ChannelStats pairs a configured channel with its statistics, which are
// nil when the API did not return the channel.
type ChannelStats struct {
	Channel    youtube.Channel
	Statistics *youtube.Statistics
}

// Youtube stores daily statistics of the configured channels.
type Youtube struct {
	source   StatisticsSource
	store    Store
	channels []youtube.Channel
}

func NewYoutube(source StatisticsSource, store Store, channels []youtube.Channel) *Youtube {
	return &Youtube{source: source, store: store, channels: channels}
}

func (p *Youtube) Name() string {
	return NameYoutube
}

func (p *Youtube) Extract(ctx context.Context) ([]ChannelStats, error) {
	ids := make([]string, 0, len(p.channels))
	for _, channel := range p.channels {
		ids = append(ids, channel.ID)
	}

	stats, err := p.source.ChannelStatistics(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]ChannelStats, 0, len(p.channels))
	for _, channel := range p.channels {
		item := ChannelStats{Channel: channel}
		if s, ok := stats[channel.ID]; ok {
			item.Statistics = &s
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Youtube) Transform(_ context.Context, item ChannelStats) (youtube.Record, error) {
	if item.Statistics == nil {
		return youtube.Record{}, fmt.Errorf("channel %s (%s) missing from response", item.Channel.ID, item.Channel.Name)
	}
	return youtube.NewRecord(item.Channel, *item.Statistics), nil
}

func (p *Youtube) Load(ctx context.Context, records []youtube.Record) (int, error) {
	return p.store.Post(ctx, api.YoutubeChannels, records)
}
