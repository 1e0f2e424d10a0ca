package models

import "time"

// RawContent is the event published for every newly created post.
type RawContent struct {
	ContentID string          `json:"content_id"`
	Source    string          `json:"source"`
	Query     string          `json:"query,omitempty"`
	Text      string          `json:"text"`
	Metadata  ContentMetadata `json:"metadata"`
}

type ContentMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	PostID    string    `json:"post_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}
