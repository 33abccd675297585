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
				"-a", "127.0.0.1:9090", "-q", ":6000", "-l", "debug", "-m", "postgres", "-d", "db",
				"-o", "s3", "-u", "key", "-p", "secret", "-b", "bucket", "-g", "us-east-005",
				"-e", "http://endpoint", "-s", "hmac", "-i", "5",
			},
			expected: &Config{
				EndpointAddrHTTP:  "127.0.0.1:9090",
				EndpointAddrGRPC:  ":6000",
				LogLevel:          "debug",
				DocStoreType:      "postgres",
				DatabaseDSN:       "db",
				StorageType:       "s3",
				S3AccessKeyID:     "key",
				S3SecretAccessKey: "secret",
				S3Bucket:          "bucket",
				S3Region:          "us-east-005",
				S3BaseEndpoint:    "http://endpoint",
				SecretKey:         "hmac",
				SweepInterval:     5 * time.Minute,
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"cmd", "-c", "cfg.json", "-test.v", "-a", ":1"},
			expected: &Config{EndpointAddrHTTP: ":1"},
		},
		{
			name:        "bad interval panics",
			args:        []string{"cmd", "-i", "soon"},
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
