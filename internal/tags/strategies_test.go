package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeeds map[string]string

func (f fakeFeeds) FetchFacebookFeed(ctx context.Context, accountID string) ([]byte, error) {
	body, ok := f[accountID]
	if !ok {
		return nil, errors.New("feed unavailable")
	}
	return []byte(body), nil
}

const pageFeed = `<rss version="2.0"><channel><title>page</title>
<item><title>Myriad launch</title><description>join us</description><link>https://www.facebook.com/permalink.php?story_fbid=1&amp;id=999</link></item>
<item><title>Other</title><description>nothing</description><link>https://www.facebook.com/permalink.php?story_fbid=2&amp;id=999</link></item>
</channel></rss>`

func TestFacebookStrategy(t *testing.T) {
	store := db.NewMemoryStore()
	store.AddPeople(models.People{ID: "a", Platform: models.PlatformFacebook, PlatformAccountID: "broken"})
	store.AddPeople(models.People{ID: "b", Platform: models.PlatformFacebook, PlatformAccountID: "999"})
	s := NewFacebookStrategy(fakeFeeds{"999": pageFeed}, store)

	found, err := s.Search(context.Background(), "myriad")
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)
	assert.Empty(t, found.Candidates)

	found, err = s.Search(context.Background(), "absent")
	assert.Error(t, err)
	assert.Zero(t, found.Total)
}

type fakeReddit struct{ listing *models.RedditListing }

func (f fakeReddit) SearchPosts(ctx context.Context, keyword string) (*models.RedditListing, error) {
	return f.listing, nil
}

func TestRedditStrategy(t *testing.T) {
	s := NewRedditStrategy(fakeReddit{listing: &models.RedditListing{Data: models.RedditListingData{
		Children: []models.RedditThing{{Kind: "t3"}, {Kind: "t1"}},
	}}})

	found, err := s.Search(context.Background(), "myriad")
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)
}

func TestTwitterStrategy_CountsRawResults(t *testing.T) {
	client := &fakeTwitter{resp: &models.TwitterSearchResponse{Data: []models.Tweet{
		{ID: "2", AuthorID: "42", ReferencedTweets: []models.ReferencedTweet{{Type: "retweeted", ID: "1"}}},
	}}}
	s := NewTwitterStrategy(client, nil)

	found, err := s.Search(context.Background(), "myriad")
	require.NoError(t, err)
	assert.Equal(t, 1, found.Total)
	assert.Empty(t, found.Candidates)
}
