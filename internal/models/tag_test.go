package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTagID(t *testing.T) {
	tests := []struct {
		name    string
		keyword string
		want    string
	}{
		{name: "hashtag with space", keyword: "#Foo Bar", want: "foobar"},
		{name: "already normalized", keyword: "foobar", want: "foobar"},
		{name: "padded mixed case", keyword: " FooBar ", want: "foobar"},
		{name: "tabs and newlines", keyword: "my\triad\n", want: "myriad"},
		{name: "only hashes", keyword: "##", want: ""},
		{name: "empty", keyword: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTagID(tt.keyword))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Myriad", " myriad", "", "Web3", "web3", "go"})
	assert.Equal(t, []string{"myriad", "web3", "go"}, got)

	assert.NotNil(t, NormalizeTags(nil))
	assert.Empty(t, NormalizeTags(nil))
}
