package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSocketURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips api prefix", "http://localhost:8080/api/v1", "ws://localhost:8080"},
		{"https becomes wss", "https://api.prepstack.dev/api/v1", "wss://api.prepstack.dev"},
		{"no path", "http://localhost:9000", "ws://localhost:9000"},
		{"garbage falls back", "::not-a-url::", "ws://localhost:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveSocketURL(tt.in))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080", cfg.SocketURL)
	assert.Equal(t, 1, cfg.SubmitMinScore)
	assert.Positive(t, cfg.WakeBudget)
	assert.Positive(t, cfg.AutosaveDebounce)
	assert.Positive(t, cfg.SocketMaxReconnects)
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, parseOrigins(" https://a.dev , https://b.dev "))
}
