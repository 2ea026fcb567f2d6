package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "http://h:9090/api", "-i", "10", "-d", "x.db", "-l", "debug", "-r", "4"},
			expected: &Config{ServerBaseURL: "http://h:9090/api", OnlineCheckInterval: 10 * time.Second, DatabasePath: "x.db", LogLevel: "debug", RequestsPerSecond: 4}},
		{name: "Test2 foreign flags ignored", args: []string{"cmd", "-c", "cfg.yaml", "-a", "http://h/api"},
			expected: &Config{ServerBaseURL: "http://h/api"}},
		{name: "Test3 incorrect check interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
		{name: "Test4 incorrect rate", args: []string{"cmd", "-r", "fast"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
