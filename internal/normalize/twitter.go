package normalize

import (
	"fmt"
	"time"

	"github.com/spacesedan/myriadflow/internal/models"
)

const twitterStatusURL = "https://twitter.com/%s/status/%s"

// OriginalTweets drops retweets, quotes and replies.
func OriginalTweets(tweets []models.Tweet) []models.Tweet {
	out := make([]models.Tweet, 0, len(tweets))
	for _, t := range tweets {
		if len(t.ReferencedTweets) > 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Authors indexes the users expanded into a search response by id.
func Authors(resp *models.TwitterSearchResponse) map[string]models.TwitterUser {
	if resp == nil {
		return map[string]models.TwitterUser{}
	}
	out := make(map[string]models.TwitterUser, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		out[u.ID] = u
	}
	return out
}

func Tweet(tweet models.Tweet, author *models.TwitterUser, ctx Context) (models.CandidatePost, error) {
	if tweet.ID == "" {
		return models.CandidatePost{}, fail(models.PlatformTwitter, "", ErrMissingID)
	}
	if len(tweet.ReferencedTweets) > 0 {
		return models.CandidatePost{}, fail(models.PlatformTwitter, tweet.ID, ErrReferencedTweet)
	}
	if author == nil || author.Username == "" {
		return models.CandidatePost{}, fail(models.PlatformTwitter, tweet.ID, ErrMissingAuthor)
	}

	var hashtags []string
	if tweet.Entities != nil {
		for _, h := range tweet.Entities.Hashtags {
			hashtags = append(hashtags, h.Tag)
		}
	}

	origin := ctx.Now
	if tweet.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			origin = t.UTC()
		}
	}

	return models.CandidatePost{
		Platform: models.PlatformTwitter,
		TextID:   tweet.ID,
		Text:     tweet.Text,
		Link:     fmt.Sprintf(twitterStatusURL, author.Username, tweet.ID),
		HasMedia: tweet.Attachments != nil && len(tweet.Attachments.MediaKeys) > 0,
		Tags:     ctx.tags(hashtags...),
		PeopleID: ctx.peopleID(),
		PlatformUser: &models.PlatformUser{
			Username:          author.Username,
			PlatformAccountID: author.ID,
		},
		OriginCreatedAt: origin,
	}, nil
}
