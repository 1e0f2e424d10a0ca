package normalize

import (
	"math"
	"time"

	"github.com/spacesedan/myriadflow/internal/models"
)

const redditBaseURL = "https://www.reddit.com"

var redditMediaHints = map[string]bool{
	"image":        true,
	"hosted:video": true,
	"rich:video":   true,
}

// RedditPosts returns the link/text posts of a listing in listing order.
func RedditPosts(listing *models.RedditListing) []models.RedditPostData {
	if listing == nil {
		return nil
	}
	out := make([]models.RedditPostData, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != models.RedditKindPost {
			continue
		}
		out = append(out, child.Data)
	}
	return out
}

func RedditPost(data models.RedditPostData, ctx Context) (models.CandidatePost, error) {
	if data.ID == "" {
		return models.CandidatePost{}, fail(models.PlatformReddit, "", ErrMissingID)
	}
	if data.Author == "" {
		return models.CandidatePost{}, fail(models.PlatformReddit, data.ID, ErrMissingAuthor)
	}

	origin := ctx.Now
	if data.CreatedUTC > 0 {
		sec, frac := math.Modf(data.CreatedUTC)
		origin = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}

	username := "u/" + data.Author
	return models.CandidatePost{
		Platform: models.PlatformReddit,
		TextID:   data.ID,
		Title:    data.Title,
		Text:     data.Selftext,
		Link:     redditBaseURL + data.Permalink,
		HasMedia: data.IsVideo || redditMediaHints[data.PostHint],
		Tags:     ctx.tags(),
		PeopleID: ctx.peopleID(),
		PlatformUser: &models.PlatformUser{
			Username:          username,
			PlatformAccountID: username,
		},
		OriginCreatedAt: origin,
	}, nil
}
