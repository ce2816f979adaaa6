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
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8081", "-rpc", "127.0.0.1:9090", "-d", "db", "-s", "access", "-S", "refresh",
				"-t", "1", "-r", "3", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1",
				"-e", "http://endpoint", "-redis", "localhost:6379", "-env", "production",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:8081",
				EndpointAddrGRPC:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				AccessTokenSecret:            "access",
				RefreshTokenSecret:           "refresh",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				S3RootUser:                   "user",
				S3RootPassword:               "password",
				S3Bucket:                     "bucket",
				S3Region:                     "us-west-1",
				S3BaseEndpoint:               "http://endpoint",
				RedisAddr:                    "localhost:6379",
				Environment:                  "production",
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"cmd", "-config", "x.json", "-zzz", "1", "-a", ":1"},
			expected: &Config{
				EndpointAddrHTTP: ":1",
			},
		},
		{
			name:        "bad minutes",
			args:        []string{"cmd", "-t", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
