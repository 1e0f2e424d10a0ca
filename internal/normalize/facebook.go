package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/spacesedan/myriadflow/internal/models"
)

const facebookPostURL = "https://facebook.com/%s/posts/%s"

var ErrEmptyFeed = errors.New("feed is empty")

// ParseFeed parses the RSS or Atom document RSSHub serves for a page.
func ParseFeed(data []byte) (*gofeed.Feed, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fail(models.PlatformFacebook, "", ErrEmptyFeed)
	}
	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, fail(models.PlatformFacebook, "", err)
	}
	return feed, nil
}

func FacebookItem(item *gofeed.Item, ctx Context) (models.CandidatePost, error) {
	if item == nil {
		return models.CandidatePost{}, fail(models.PlatformFacebook, "", ErrMissingID)
	}
	textID, account, err := parseFacebookLink(item.Link)
	if err != nil {
		return models.CandidatePost{}, fail(models.PlatformFacebook, item.GUID, err)
	}

	user := &models.PlatformUser{PlatformAccountID: account}
	if ctx.People != nil {
		user.Username = ctx.People.Username
		if account == "" {
			user.PlatformAccountID = ctx.People.PlatformAccountID
		}
	}
	if user.Username == "" && item.Author != nil {
		user.Username = item.Author.Name
	}
	if user.PlatformAccountID == "" {
		return models.CandidatePost{}, fail(models.PlatformFacebook, textID, ErrMissingAuthor)
	}

	origin := ctx.Now
	if item.PublishedParsed != nil {
		origin = item.PublishedParsed.UTC()
	}

	return models.CandidatePost{
		Platform:        models.PlatformFacebook,
		TextID:          textID,
		Text:            item.Description,
		Link:            fmt.Sprintf(facebookPostURL, user.PlatformAccountID, textID),
		HasMedia:        false,
		Tags:            ctx.tags(),
		PeopleID:        ctx.peopleID(),
		PlatformUser:    user,
		OriginCreatedAt: origin,
	}, nil
}

// parseFacebookLink extracts the post id and page id from a permalink of the
// form ...?story_fbid=<post>&id=<page>. Links that do not parse as a URL are
// read positionally from their '='-separated segments.
func parseFacebookLink(link string) (textID, account string, err error) {
	if u, perr := url.Parse(link); perr == nil {
		q := u.Query()
		if id := q.Get("story_fbid"); id != "" {
			return id, q.Get("id"), nil
		}
	}

	parts := strings.Split(link, "=")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLink, link)
	}
	textID = parts[1]
	if i := strings.LastIndex(textID, "&"); i >= 0 {
		textID = textID[:i]
	}
	account = parts[2]
	if textID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLink, link)
	}
	return textID, account, nil
}
