package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/tenantdrive/internal/flagx"
	"github.com/dmitrijs2005/tenantdrive/internal/timex"
)

// JsonConfig is the on-disk DTO. Durations accept "15m" style strings or
// integer nanoseconds. Absent fields keep whatever the Config already holds.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	RequestTimeout              timex.Duration `json:"request_timeout"`
	LogLevel                    string         `json:"log_level"`
	DocStoreType                string         `json:"docstore_type"`
	DatabaseDSN                 string         `json:"database_dsn"`
	StorageType                 string         `json:"storage_type"`
	S3AccessKeyID               string         `json:"s3_access_key_id"`
	S3SecretAccessKey           string         `json:"s3_secret_access_key"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3UsePathStyle              *bool          `json:"s3_use_path_style"`
	PresignExpiry               timex.Duration `json:"presign_expiry"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	SweepInterval               timex.Duration `json:"sweep_interval"`
	UploadSessionTTL            timex.Duration `json:"upload_session_ttl"`
}

// parseJson overlays the file named by -c/-config onto config. Nothing happens
// without the flag; an unreadable or invalid file panics, as startup cannot
// continue with a half-applied configuration.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := LoadFile(path, config); err != nil {
		panic(err)
	}
}

// LoadFile overlays the JSON file at path onto config.
func LoadFile(path string, config *Config) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.DocStoreType, c.DocStoreType)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StorageType, c.StorageType)
	setString(&config.S3AccessKeyID, c.S3AccessKeyID)
	setString(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}
	setDuration(&config.PresignExpiry, c.PresignExpiry)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setDuration(&config.UploadSessionTTL, c.UploadSessionTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
