// Package normalize turns platform payloads into candidate posts.
//
// Every function here is pure: the only clock input is Context.Now, so the
// same payload and context always yield the same candidate.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/spacesedan/myriadflow/internal/models"
)

var (
	ErrReferencedTweet = errors.New("tweet references another tweet")
	ErrMissingAuthor   = errors.New("author is missing")
	ErrMissingID       = errors.New("item id is missing")
	ErrMalformedLink   = errors.New("link is malformed")
)

// Context carries everything a normalizer may read besides the payload.
type Context struct {
	Now    time.Time
	Tag    string
	People *models.People
}

func (c Context) peopleID() string {
	if c.People == nil {
		return ""
	}
	return c.People.ID
}

func (c Context) tags(own ...string) []string {
	tags := make([]string, 0, len(own)+1)
	tags = append(tags, own...)
	if c.Tag != "" {
		tags = append(tags, c.Tag)
	}
	return models.NormalizeTags(tags)
}

// Error is returned when a payload cannot become a candidate post.
type Error struct {
	Platform models.Platform
	ItemID   string
	Err      error
}

func (e *Error) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("normalize %s payload: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("normalize %s item %q: %v", e.Platform, e.ItemID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(platform models.Platform, id string, err error) *Error {
	return &Error{Platform: platform, ItemID: id, Err: err}
}
