package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_http": ":9000",
		"docstore_type":      "postgres",
		"storage_type":       "s3",
		"s3_bucket":          "files",
		"s3_use_path_style":  true,
		"presign_expiry":     "5m",
		"sweep_interval":     "10m",
		"upload_session_ttl": "48h",
		"secret_key":         "k",
	})

	t.Run("overlays values from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}
		c := &Config{}
		c.LoadDefaults()

		parseJson(c)

		assert.Equal(t, ":9000", c.EndpointAddrHTTP)
		assert.Equal(t, BackendPostgres, c.DocStoreType)
		assert.Equal(t, BackendS3, c.StorageType)
		assert.Equal(t, "files", c.S3Bucket)
		assert.True(t, c.S3UsePathStyle)
		assert.Equal(t, 5*time.Minute, c.PresignExpiry)
		assert.Equal(t, 10*time.Minute, c.SweepInterval)
		assert.Equal(t, 48*time.Hour, c.UploadSessionTTL)
		assert.Equal(t, "k", c.SecretKey)
		// untouched fields keep their defaults
		assert.Equal(t, ":50051", c.EndpointAddrGRPC)
		assert.Equal(t, "us-west-004", c.S3Region)
	})

	t.Run("no flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}
		c := &Config{}
		c.LoadDefaults()
		want := *c

		parseJson(c)
		assert.Equal(t, want, *c)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "absent.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	err := LoadFile(path, &Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}
