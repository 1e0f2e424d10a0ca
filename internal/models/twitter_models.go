package models

// TwitterSearchResponse is the Twitter API v2 envelope for tweet listings
// (recent search and user timelines).
type TwitterSearchResponse struct {
	Data     []Tweet           `json:"data"`
	Includes TwitterIncludes   `json:"includes"`
	Errors   []TwitterAPIError `json:"errors,omitempty"`
	Meta     TwitterMeta       `json:"meta"`
}

type TwitterIncludes struct {
	Users []TwitterUser `json:"users"`
}

type TwitterMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token,omitempty"`
}

type TwitterAPIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type Tweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	AuthorID         string            `json:"author_id"`
	CreatedAt        string            `json:"created_at,omitempty"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
	Attachments      *TweetAttachments `json:"attachments,omitempty"`
	Entities         *TweetEntities    `json:"entities,omitempty"`
}

type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type TweetAttachments struct {
	MediaKeys []string `json:"media_keys,omitempty"`
}

type TweetEntities struct {
	Hashtags []TweetHashtag `json:"hashtags,omitempty"`
}

type TweetHashtag struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Tag   string `json:"tag"`
}

type TwitterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type TwitterUserResponse struct {
	Data   *TwitterUser      `json:"data"`
	Errors []TwitterAPIError `json:"errors,omitempty"`
}
