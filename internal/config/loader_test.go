package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-123")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "key: ${TEST_API_KEY}", "key: sk-123"},
		{"set variable ignores default", "key: ${TEST_API_KEY:fallback}", "key: sk-123"},
		{"unset with default", "host: ${TEST_UNSET_HOST:localhost}", "host: localhost"},
		{"unset with empty default", "key: ${TEST_UNSET_KEY:}", "key: "},
		{"unset without default kept as-is", "key: ${TEST_UNSET_KEY}", "key: ${TEST_UNSET_KEY}"},
		{"multiple placeholders", "${TEST_API_KEY}/${TEST_UNSET_PATH:v1}", "sk-123/v1"},
		{"no placeholder", "plain: value", "plain: value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}
