package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSensitiveQueryParams(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"nothing sensitive", "limit=10&slug=acme", "limit=10&slug=acme"},
		{"token", "token=abc&slug=acme", "slug=acme&token=%5BREDACTED%5D"},
		{"api key", "api_key=xyz&limit=5", "api_key=%5BREDACTED%5D&limit=5"},
		{"presigned url signature", "X-Amz-Signature=deadbeef&X-Amz-Expires=60", "X-Amz-Expires=60&X-Amz-Signature=%5BREDACTED%5D"},
		{"case insensitive", "PASSWORD=hunter2", "PASSWORD=%5BREDACTED%5D"},
		{"unparseable kept", "a=%zz", "a=%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redactSensitiveQueryParams(tt.input))
		})
	}
}

func TestIsSensitiveQueryKey(t *testing.T) {
	assert.True(t, isSensitiveQueryKey("refresh_token"))
	assert.True(t, isSensitiveQueryKey("SessionID"))
	assert.False(t, isSensitiveQueryKey("tenant"))
}
