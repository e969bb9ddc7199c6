package otel

import (
	"testing"

	"github.com/bignyap/studio-storage/otel/config"
	"github.com/stretchr/testify/assert"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name string
		in   config.ExporterConfig
		want exportTarget
	}{
		{
			name: "otlp passes through",
			in: config.ExporterConfig{
				Type:     config.ExporterTypeOTLP,
				Endpoint: "collector:4317",
				Insecure: true,
				Headers:  map[string]string{"x-team": "studio"},
			},
			want: exportTarget{endpoint: "collector:4317", insecure: true, headers: map[string]string{"x-team": "studio"}},
		},
		{
			name: "elastic over https keeps tls",
			in: config.ExporterConfig{
				Type:       config.ExporterTypeElasticAPM,
				ElasticAPM: config.ElasticAPMConfig{ServerURL: "https://apm.example.com:8200", SecretToken: "s3cr3t"},
			},
			want: exportTarget{
				endpoint: "apm.example.com:8200",
				headers:  map[string]string{"Authorization": "Bearer s3cr3t"},
				overHTTP: true,
			},
		},
		{
			name: "elastic over http is insecure",
			in: config.ExporterConfig{
				Type:       config.ExporterTypeElasticAPM,
				ElasticAPM: config.ElasticAPMConfig{ServerURL: "http://apm:8200", APIKey: "k"},
			},
			want: exportTarget{
				endpoint: "apm:8200",
				insecure: true,
				headers:  map[string]string{"Authorization": "ApiKey k"},
				overHTTP: true,
			},
		},
		{
			name: "elastic bare host",
			in: config.ExporterConfig{
				Type:       config.ExporterTypeElasticAPM,
				ElasticAPM: config.ElasticAPMConfig{ServerURL: "apm:8200"},
			},
			want: exportTarget{endpoint: "apm:8200", insecure: true, overHTTP: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTarget(tt.in))
		})
	}
}
