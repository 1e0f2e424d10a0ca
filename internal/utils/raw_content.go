package utils

import (
	"github.com/spacesedan/myriadflow/internal/models"
)

// PostToRawContent builds the content event published for a stored post.
func PostToRawContent(p models.Post) models.RawContent {
	author := ""
	if p.PlatformUser != nil {
		author = p.PlatformUser.Username
	}
	text := p.Text
	if text == "" {
		text = p.Title
	}
	return models.RawContent{
		ContentID: p.ID,
		Source:    string(p.Platform),
		Text:      text,
		Metadata: models.ContentMetadata{
			Timestamp: p.OriginCreatedAt,
			Author:    author,
			PostID:    p.TextID,
			URL:       p.Link,
			Tags:      append([]string(nil), p.Tags...),
		},
	}
}
