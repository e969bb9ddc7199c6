package accounting_test

import (
	"testing"

	"github.com/bignyap/studio-storage/accounting"
	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"plain key", "tenants/t1/a.jpg", "tenants/t1/a.jpg"},
		{"leading slash", "/tenants/t1/a.jpg", "tenants/t1/a.jpg"},
		{"path style url", "https://minio.local:9000/studio-media/tenants/t1/a.jpg", "tenants/t1/a.jpg"},
		{"virtual host url", "https://studio-media.s3.amazonaws.com/tenants/t1/a.jpg", "tenants/t1/a.jpg"},
		{"escaped url", "http://cdn.local/studio-media/tenants/t1/my%20photo.jpg", "tenants/t1/my photo.jpg"},
		{"query dropped", "https://cdn.local/tenants/t1/a.jpg?X-Amz-Signature=abc", "tenants/t1/a.jpg"},
		{"blank", "  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accounting.ObjectKey(tt.ref, "studio-media"))
		})
	}
}

func TestRenderPath(t *testing.T) {
	assert.Equal(t, "tenants/t1/offers/o9/", accounting.RenderPath("tenants/{tenant}/offers/{id}/", "t1", "o9"))
	assert.Equal(t, "static/", accounting.RenderPath("static/", "t1", "o9"))
}
