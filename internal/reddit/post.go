package reddit

import (
	"math"
	"time"
)

// TimeLayout matches the timestamp format the central API stores.
const TimeLayout = "2006-01-02T15:04:05.000000-0700"

type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
	Over18      bool    `json:"over_18"`
	Spoiler     bool    `json:"spoiler"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
}

type Author struct {
	Name             string  `json:"name"`
	IsGold           bool    `json:"is_gold"`
	IsMod            bool    `json:"is_mod"`
	HasVerifiedEmail bool    `json:"has_verified_email"`
	CreatedUTC       float64 `json:"created_utc"`
	CommentKarma     int     `json:"comment_karma"`
}

// Record is the row the central API stores for one post. Author fields are
// null when the author lookup failed.
type Record struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Content             string  `json:"content"`
	UpvoteRatio         float64 `json:"upvote_ratio"`
	Score               int     `json:"score"`
	NumComments         int     `json:"num_comments"`
	CreatedOn           string  `json:"created_on"`
	Stickied            bool    `json:"stickied"`
	Over18              bool    `json:"over_18"`
	Spoiler             bool    `json:"spoiler"`
	Link                string  `json:"link"`
	Author              *string `json:"author"`
	AuthorGold          *bool   `json:"author_gold"`
	ModStatus           *bool   `json:"mod_status"`
	VerifiedEmailStatus *bool   `json:"verified_email_status"`
	AccCreatedOn        *string `json:"acc_created_on"`
	CommentKarma        *int    `json:"comment_karma"`
}

func NewRecord(post Post, author *Author) Record {
	record := Record{
		ID:          post.ID,
		Title:       post.Title,
		Content:     post.Selftext,
		UpvoteRatio: post.UpvoteRatio,
		Score:       post.Score,
		NumComments: post.NumComments,
		CreatedOn:   FormatTime(post.CreatedUTC),
		Stickied:    post.Stickied,
		Over18:      post.Over18,
		Spoiler:     post.Spoiler,
		Link:        post.Permalink,
	}
	if author == nil {
		return record
	}

	name := author.Name
	created := FormatTime(author.CreatedUTC)
	karma := author.CommentKarma
	gold, mod, verified := author.IsGold, author.IsMod, author.HasVerifiedEmail
	record.Author = &name
	record.AuthorGold = &gold
	record.ModStatus = &mod
	record.VerifiedEmailStatus = &verified
	record.AccCreatedOn = &created
	record.CommentKarma = &karma
	return record
}

// FormatTime renders a unix timestamp in UTC with microseconds.
func FormatTime(utc float64) string {
	sec, frac := math.Modf(utc)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3).UTC().Format(TimeLayout)
}
