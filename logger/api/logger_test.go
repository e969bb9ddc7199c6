package api_test

import (
	"context"
	"testing"

	"github.com/bignyap/studio-storage/logger/api"
	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1024, "1.0 KiB"},
		{6 << 20, "6.0 MiB"},
		{10 << 30, "10 GiB"},
		{-2048, "-2.0 KiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, api.Bytes("size", tt.in).Value)
	}
}

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := api.ContextWithTraceID(context.Background(), "abc")
	assert.Equal(t, "abc", api.GetTraceIDFromContext(ctx))
	assert.Equal(t, "", api.GetTraceIDFromContext(context.Background()))
}

func TestOrDefault(t *testing.T) {
	assert.IsType(t, &api.DefaultLogger{}, api.OrDefault(nil))
}
