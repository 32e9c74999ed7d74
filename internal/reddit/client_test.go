package reddit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const topListing = `{"kind":"Listing","data":{"children":[
	{"kind":"t3","data":{"id":"lq1","title":"GME","selftext":"hold","upvote_ratio":0.97,"score":4200,"num_comments":310,
		"created_utc":1611849600.0,"stickied":false,"over_18":false,"spoiler":false,"permalink":"/r/wallstreetbets/comments/lq1/gme/","author":"deepfv"}},
	{"kind":"t1","data":{"id":"c1"}},
	{"kind":"t3","data":{"id":"lq2","title":"AMC","selftext":"","created_utc":1611853200.5,"author":"[deleted]"}}
]}}`

func newRedditServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/r/wallstreetbets/top.json", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery+" auth="+r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, topListing)
	})
	mux.HandleFunc("/user/deepfv/about.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"kind":"t2","data":{"name":"DeepFV","is_gold":true,"is_mod":false,
			"has_verified_email":true,"created_utc":1262304000,"comment_karma":1234}}`)
	})
	mux.HandleFunc("/user/ghost/about.json", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" || r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestTopPosts(t *testing.T) {
	srv, paths := newRedditServer(t)
	client := NewClient(Options{BaseURL: srv.URL})

	posts, err := client.TopPosts(context.Background(), "r/wallstreetbets", "")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "lq1", posts[0].ID)
	require.Equal(t, "hold", posts[0].Selftext)
	require.Equal(t, 310, posts[0].NumComments)
	require.Equal(t, []string{"/r/wallstreetbets/top.json?limit=100&raw_json=1&t=day auth="}, *paths)
}

func TestTopPostsWithOAuth(t *testing.T) {
	srv, paths := newRedditServer(t)
	client := NewClient(Options{
		BaseURL:      srv.URL,
		OAuthBaseURL: srv.URL,
		TokenURL:     srv.URL + "/api/v1/access_token",
		ClientID:     "id",
		ClientSecret: "secret",
		Limit:        25,
	})

	_, err := client.TopPosts(context.Background(), "wallstreetbets", "day")
	require.NoError(t, err)
	require.Equal(t, []string{"/r/wallstreetbets/top.json?limit=25&raw_json=1&t=day auth=Bearer tok"}, *paths)
}

func TestAuthor(t *testing.T) {
	srv, _ := newRedditServer(t)
	client := NewClient(Options{BaseURL: srv.URL})

	author, err := client.Author(context.Background(), "deepfv")
	require.NoError(t, err)
	require.Equal(t, "DeepFV", author.Name)
	require.True(t, author.IsGold)
	require.Equal(t, 1234, author.CommentKarma)

	_, err = client.Author(context.Background(), "ghost")
	require.Error(t, err)
	_, err = client.Author(context.Background(), "[deleted]")
	require.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	post := Post{ID: "lq1", Title: "GME", Selftext: "hold", CreatedUTC: 1611849600.25, Permalink: "/r/x/1"}
	author := &Author{Name: "DeepFV", IsGold: true, CreatedUTC: 1262304000, CommentKarma: 12}

	record := NewRecord(post, author)
	require.Equal(t, "2021-01-28T16:00:00.250000+0000", record.CreatedOn)
	require.Equal(t, "hold", record.Content)
	require.Equal(t, "DeepFV", *record.Author)
	require.Equal(t, "2010-01-01T00:00:00.000000+0000", *record.AccCreatedOn)
	require.True(t, *record.AuthorGold)
	require.False(t, *record.ModStatus)

	bare := NewRecord(post, nil)
	raw, err := json.Marshal(bare)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, field := range []string{"author", "author_gold", "mod_status", "verified_email_status", "acc_created_on", "comment_karma"} {
		require.Contains(t, decoded, field)
		require.Nil(t, decoded[field], field)
	}
}
