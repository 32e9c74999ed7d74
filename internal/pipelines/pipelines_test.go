package pipelines

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/models"
	"github.com/jimezsa/pipecli/internal/news"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/jimezsa/pipecli/internal/reddit"
	"github.com/jimezsa/pipecli/internal/tickers"
	"github.com/jimezsa/pipecli/internal/youtube"
	"github.com/stretchr/testify/require"
)

type fakeListings struct {
	listings []models.Listing
	err      error
	params   models.ScrapeParams
}

func (f *fakeListings) Search(_ context.Context, _ string, params models.ScrapeParams) ([]models.Listing, error) {
	f.params = params
	return f.listings, f.err
}

func TestIndeedPostsUniqueListings(t *testing.T) {
	source := &fakeListings{listings: []models.Listing{
		{ID: "a", Title: "Go Developer", Location: "Toronto, ON", DatePosted: models.StringPtr("2021-04-07")},
		{ID: "b", Title: "SRE", Location: "Remote"},
		{ID: "a", Title: "Go Developer", Location: "Toronto, ON"},
	}}
	store := &fakeStore{}
	p := NewIndeed(source, store, config.IndeedConfig{Query: "golang", Location: "Toronto", MaxPages: 2})
	p.now = testNow

	report, err := pipeline.Run[models.Listing, models.Listing](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 2, report.Extracted)
	require.Equal(t, 2, report.Loaded)
	require.Equal(t, 201, report.LoadStatus)

	posted := store.posts[api.IndeedListings].([]models.Listing)
	require.Equal(t, []string{"a", "b"}, []string{posted[0].ID, posted[1].ID})
	require.Equal(t, "2021-04-07", models.Deref(posted[0].DatePosted))
	require.Equal(t, models.ScrapeParams{Query: "golang", Location: "Toronto", MaxPages: 2, Today: testNow()}, source.params)
}

func TestIndeedScrapeFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	p := NewIndeed(&fakeListings{err: errUnavailable}, store, config.IndeedConfig{Query: "golang"})

	report, err := pipeline.Run[models.Listing, models.Listing](context.Background(), p, runOptions())
	require.ErrorIs(t, err, errUnavailable)
	require.NotEmpty(t, report.Error)
	require.Empty(t, store.posts)
}

type fakeReddit struct {
	posts   []reddit.Post
	authors map[string]*reddit.Author
}

func (f *fakeReddit) TopPosts(context.Context, string, string) ([]reddit.Post, error) {
	return f.posts, nil
}

func (f *fakeReddit) Author(_ context.Context, name string) (*reddit.Author, error) {
	author, ok := f.authors[name]
	if !ok {
		return nil, errUnavailable
	}
	return author, nil
}

func redditFixture() *fakeReddit {
	return &fakeReddit{
		posts: []reddit.Post{
			{ID: "p1", Title: "GME", Author: "alice", CreatedUTC: 1618066800},
			{ID: "p2", Title: "stored already", Author: "alice"},
			{ID: "p3", Title: "deleted author", Author: "[deleted]"},
		},
		authors: map[string]*reddit.Author{
			"alice": {Name: "alice", CommentKarma: 42, CreatedUTC: 1500000000},
		},
	}
}

func TestRedditDropsStoredPostsAndDegradesAuthors(t *testing.T) {
	resource := api.Subreddit("wallstreetbets")
	store := &fakeStore{tables: map[string]*api.Table{
		resource: api.NewTable(api.IDField, []api.Row{{"id": "p2"}}),
	}}
	p := NewReddit(redditFixture(), store, config.RedditConfig{Subreddit: "wallstreetbets"})
	p.now = testNow

	report, err := pipeline.Run[reddit.Post, reddit.Record](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 2, report.Loaded)

	require.Equal(t, []getCall{{
		Resource: resource,
		Filters:  api.Filters{StartDate: "2021-04-09", EndDate: "2021-04-11"},
	}}, store.gets)

	posted := store.posts[resource].([]reddit.Record)
	require.Len(t, posted, 2)
	require.Equal(t, "p1", posted[0].ID)
	require.Equal(t, "alice", *posted[0].Author)
	require.Equal(t, 42, *posted[0].CommentKarma)
	require.Equal(t, "2021-04-10T15:00:00.000000+0000", posted[0].CreatedOn)
	require.Equal(t, "p3", posted[1].ID)
	require.Nil(t, posted[1].Author)
	require.Nil(t, posted[1].CommentKarma)
}

func TestRedditKeepsAllPostsWhenStoredLookupFails(t *testing.T) {
	resource := api.Subreddit("wallstreetbets")
	store := &fakeStore{getErrs: map[string]error{resource: errUnavailable}}
	p := NewReddit(redditFixture(), store, config.RedditConfig{Subreddit: "wallstreetbets"})

	report, err := pipeline.Run[reddit.Post, reddit.Record](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 3, report.Loaded)
}

func tickerStore(posts ...api.Row) *fakeStore {
	return &fakeStore{tables: map[string]*api.Table{
		api.IndexComposition("nyse"):   api.NewTable(api.IDField, []api.Row{{"symbol": "GME"}, {"symbol": "AMC"}}),
		api.IndexComposition("nasdaq"): api.NewTable(api.IDField, []api.Row{{"symbol": "AAPL"}}),
		api.Subreddit("wallstreetbets"): api.NewTable(api.IDField, posts),
	}}
}

func newTestTickers(store Store) *Tickers {
	p := NewTickers(store, config.TickersConfig{
		Subreddit:    "wallstreetbets",
		Indexes:      []string{"nyse", "nasdaq"},
		LookbackDays: 1,
	})
	p.now = testNow
	return p
}

func TestTickersPostsDailyFrequencies(t *testing.T) {
	store := tickerStore(
		api.Row{"id": "p1", "title": "$GME to the moon", "content": "GME and AAPL", "created_on": "2021-04-10T09:00:00.000000+0000"},
		api.Row{"id": "p2", "title": "AMC", "content": "", "created_on": "2021-04-09T22:00:00.000000+0000"},
		api.Row{"id": "p3", "title": "GME", "content": "", "created_on": "not a time"},
	)
	p := newTestTickers(store)

	report, err := pipeline.Run[api.Row, tickers.Post](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped)

	want := []tickers.DayCounts{
		{Day: "2021-04-09", FreqCounts: map[string]int{"AMC": 1}},
		{Day: "2021-04-10", FreqCounts: map[string]int{"GME": 2, "AAPL": 1}},
	}
	if diff := cmp.Diff(want, store.posts[api.TickerFrequency]); diff != "" {
		t.Fatalf("posted frequencies mismatch (-want +got):\n%s", diff)
	}

	last := store.gets[len(store.gets)-1]
	require.Equal(t, api.Filters{StartDate: "2021-04-09", EndDate: "2021-04-11"}, last.Filters)
}

func TestTickersWithoutMentionsSkipsPost(t *testing.T) {
	store := tickerStore(api.Row{"id": "p1", "title": "nothing here", "created_on": "2021-04-10T09:00:00.000000+0000"})

	report, err := pipeline.Run[api.Row, tickers.Post](context.Background(), newTestTickers(store), runOptions())
	require.NoError(t, err)
	require.True(t, report.Empty)
	require.Empty(t, report.LoadError)
	require.NotContains(t, store.posts, api.TickerFrequency)
}

func TestTickersIndexFailureAborts(t *testing.T) {
	store := tickerStore()
	store.getErrs = map[string]error{api.IndexComposition("nasdaq"): errUnavailable}

	_, err := pipeline.Run[api.Row, tickers.Post](context.Background(), newTestTickers(store), runOptions())
	require.ErrorIs(t, err, errUnavailable)
	require.Empty(t, store.posts)
}

type fakeStatistics map[string]youtube.Statistics

func (f fakeStatistics) ChannelStatistics(context.Context, []string) (map[string]youtube.Statistics, error) {
	return f, nil
}

func TestYoutubeSkipsMissingChannels(t *testing.T) {
	source := fakeStatistics{"UC1": {ViewCount: "10", SubscriberCount: "2", VideoCount: "1"}}
	store := &fakeStore{}
	p := NewYoutube(source, store, []youtube.Channel{{ID: "UC1", Name: "One"}, {ID: "UC2", Name: "Two"}})

	report, err := pipeline.Run[ChannelStats, youtube.Record](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped)

	posted := store.posts[api.YoutubeChannels].([]youtube.Record)
	require.Len(t, posted, 1)
	require.Equal(t, "One", posted[0].ChannelName)
	require.Equal(t, "10", *posted[0].ViewCount)
}

type fakeArticles struct {
	links map[string][]news.Ref
}

func (f *fakeArticles) Links(_ context.Context, site news.Site) ([]news.Ref, error) {
	refs, ok := f.links[site.Name]
	if !ok {
		return nil, errUnavailable
	}
	return refs, nil
}

func (f *fakeArticles) Article(_ context.Context, ref news.Ref) (news.Article, error) {
	if ref.URL == "https://a.example/broken" {
		return news.Article{}, news.ErrNoText
	}
	return news.Article{Title: "Story", URL: ref.URL, Source: ref.Source}, nil
}

func TestNewsSkipsFailingSitesAndArticles(t *testing.T) {
	source := &fakeArticles{links: map[string][]news.Ref{
		"A": {
			{Source: "A", URL: "https://a.example/story-one"},
			{Source: "A", URL: "https://a.example/broken"},
			{Source: "A", URL: "https://a.example/story-one"},
		},
	}}
	store := &fakeStore{}
	p := NewNews(source, store, "sites.yaml")
	p.loadSites = func(path string) ([]news.Site, error) {
		require.Equal(t, "sites.yaml", path)
		return []news.Site{{Name: "A", URL: "https://a.example"}, {Name: "B", URL: "https://b.example"}}, nil
	}

	report, err := pipeline.Run[news.Ref, news.Article](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 2, report.Extracted)
	require.Equal(t, 1, report.Skipped)

	posted := store.posts[api.NewsArticles].([]news.Article)
	require.Len(t, posted, 1)
	require.Equal(t, "https://a.example/story-one", posted[0].URL)
}

func TestCountriesPostsPayloadAsIs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":{"common":"Canada"},"cca2":"CA"},null,{"name":{"common":"Peru"}}]`))
	}))
	defer srv.Close()

	store := &fakeStore{}
	p := NewCountries(srv.URL, 0, store)

	report, err := pipeline.Run[json.RawMessage, json.RawMessage](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, 3, report.Extracted)
	require.Equal(t, 2, report.Loaded)

	body, err := json.Marshal(store.posts[api.CountrySummaries])
	require.NoError(t, err)
	require.JSONEq(t, `[{"name":{"common":"Canada"},"cca2":"CA"},{"name":{"common":"Peru"}}]`, string(body))
}

func TestCountriesErrorStatusAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	store := &fakeStore{}
	_, err := pipeline.Run[json.RawMessage, json.RawMessage](context.Background(), NewCountries(srv.URL, 0, store), runOptions())
	require.ErrorContains(t, err, "http 502")
	require.Empty(t, store.posts)
}

func TestLoadFailureIsReported(t *testing.T) {
	store := &fakeStore{postErr: errUnavailable}
	p := NewYoutube(fakeStatistics{"UC1": {ViewCount: "1"}}, store, []youtube.Channel{{ID: "UC1"}})

	report, err := pipeline.Run[ChannelStats, youtube.Record](context.Background(), p, runOptions())
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, report.LoadStatus)
	require.Equal(t, errUnavailable.Error(), report.LoadError)
	require.False(t, report.Succeeded())
}
