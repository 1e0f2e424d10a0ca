package models

// RedditListing is the envelope returned by Reddit listing endpoints
// (search, user/<name>/submitted).
type RedditListing struct {
	Kind string            `json:"kind"`
	Data RedditListingData `json:"data"`
}

type RedditListingData struct {
	After    string        `json:"after"`
	Children []RedditThing `json:"children"`
}

// RedditThing is one listing child. Kind "t3" is a link/text post; other kinds
// (t1 comments, ...) are not content items.
type RedditThing struct {
	Kind string         `json:"kind"`
	Data RedditPostData `json:"data"`
}

const RedditKindPost = "t3"

type RedditPostData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Subreddit  string  `json:"subreddit"`
	Author     string  `json:"author"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
	PostHint   string  `json:"post_hint"`
	IsVideo    bool    `json:"is_video"`
	Ups        int     `json:"ups"`
	CreatedUTC float64 `json:"created_utc"`
}
