package models

import (
	"strings"
	"time"
)

type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformFacebook Platform = "facebook"
	PlatformReddit   Platform = "reddit"
	PlatformNative   Platform = "native"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformFacebook, PlatformReddit, PlatformNative:
		return true
	}
	return false
}

type PlatformUser struct {
	Username          string `json:"username" dynamodbav:"username"`
	PlatformAccountID string `json:"platform_account_id,omitempty" dynamodbav:"platform_account_id,omitempty"`
}

// Post is the canonical content item. (Platform, TextID) is its natural key.
type Post struct {
	ID               string        `json:"id" dynamodbav:"id"`
	Platform         Platform      `json:"platform" dynamodbav:"platform"`
	TextID           string        `json:"text_id" dynamodbav:"text_id"`
	Title            string        `json:"title" dynamodbav:"title"`
	Text             string        `json:"text" dynamodbav:"text"`
	Link             string        `json:"link" dynamodbav:"link"`
	HasMedia         bool          `json:"has_media" dynamodbav:"has_media"`
	Tags             []string      `json:"tags" dynamodbav:"tags"`
	PeopleID         string        `json:"people_id,omitempty" dynamodbav:"people_id,omitempty"`
	PlatformUser     *PlatformUser `json:"platform_user,omitempty" dynamodbav:"platform_user,omitempty"`
	WalletAddress    string        `json:"wallet_address,omitempty" dynamodbav:"wallet_address,omitempty"`
	CredentialUserID string        `json:"credential_user_id,omitempty" dynamodbav:"credential_user_id,omitempty"`
	OriginCreatedAt  time.Time     `json:"origin_created_at" dynamodbav:"origin_created_at"`
	CreatedAt        time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}

func (p Post) NaturalKey() string {
	return NaturalKey(p.Platform, p.TextID)
}

func NaturalKey(platform Platform, textID string) string {
	return string(platform) + "#" + textID
}

// CandidatePost is a normalized, not yet persisted post.
type CandidatePost struct {
	Platform        Platform
	TextID          string
	Title           string
	Text            string
	Link            string
	HasMedia        bool
	Tags            []string
	PeopleID        string
	PlatformUser    *PlatformUser
	OriginCreatedAt time.Time
}

func (c CandidatePost) NaturalKey() string {
	return NaturalKey(c.Platform, c.TextID)
}

// WithTag returns a copy of c carrying tag in addition to its own tags.
func (c CandidatePost) WithTag(tag string) CandidatePost {
	tags := make([]string, 0, len(c.Tags)+1)
	tags = append(tags, c.Tags...)
	tags = append(tags, tag)
	c.Tags = NormalizeTags(tags)
	return c
}

// NewPost builds the unpersisted post for c. ID and wallet fields stay empty.
func (c CandidatePost) NewPost() *Post {
	var user *PlatformUser
	if c.PlatformUser != nil {
		u := *c.PlatformUser
		user = &u
	}
	return &Post{
		Platform:        c.Platform,
		TextID:          c.TextID,
		Title:           c.Title,
		Text:            c.Text,
		Link:            c.Link,
		HasMedia:        c.HasMedia,
		Tags:            NormalizeTags(c.Tags),
		PeopleID:        c.PeopleID,
		PlatformUser:    user,
		OriginCreatedAt: c.OriginCreatedAt,
	}
}

// NormalizeTags lower-cases, trims and deduplicates tags, keeping the order in
// which each tag was first seen. It never returns nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
