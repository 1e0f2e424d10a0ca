package models

import (
	"strings"
	"time"
	"unicode"
)

type Tag struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Hide      bool      `json:"hide" dynamodbav:"hide"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// NormalizeTagID turns a keyword into a tag id: whitespace and leading '#'
// removed, lower-cased. "#Foo Bar", "foobar" and " FooBar " all map to "foobar".
func NormalizeTagID(keyword string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, keyword)
	return strings.ToLower(strings.TrimLeft(stripped, "#"))
}
