package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/socialmaster/internal/flagx"
	"github.com/dmitrijs2005/socialmaster/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "1m30s" or integer nanoseconds. Absent fields keep the
// current value.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	SocialTokenKey              string         `json:"social_token_key"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3PublicBaseURL             string         `json:"s3_public_base_url"`
	OpenAIAPIKey                string         `json:"openai_api_key"`
	OpenAIBaseURL               string         `json:"openai_base_url"`
	OpenAIModel                 string         `json:"openai_model"`
	IdeogramAPIKey              string         `json:"ideogram_api_key"`
	IdeogramBaseURL             string         `json:"ideogram_base_url"`
	GraphAPIBaseURL             string         `json:"graph_api_base_url"`
	RabbitMQURL                 string         `json:"rabbitmq_url"`
	RedisURL                    string         `json:"redis_url"`
	AutoPublishSchedule         string         `json:"auto_publish_schedule"`
	HTTPTimeout                 timex.Duration `json:"http_timeout"`
	RetryMaxAttempts            int            `json:"retry_max_attempts"`
	RetryBaseDelay              timex.Duration `json:"retry_base_delay"`
	MaxBatchDays                int            `json:"max_batch_days"`
	DiacriticsLanguages         []string       `json:"diacritics_languages"`
}

// parseJson overlays the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	str(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	str(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	str(&config.DatabaseDSN, c.DatabaseDSN)
	str(&config.SecretKey, c.SecretKey)
	str(&config.SocialTokenKey, c.SocialTokenKey)
	str(&config.S3RootUser, c.S3RootUser)
	str(&config.S3RootPassword, c.S3RootPassword)
	str(&config.S3Bucket, c.S3Bucket)
	str(&config.S3Region, c.S3Region)
	str(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	str(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	str(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	str(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	str(&config.OpenAIModel, c.OpenAIModel)
	str(&config.IdeogramAPIKey, c.IdeogramAPIKey)
	str(&config.IdeogramBaseURL, c.IdeogramBaseURL)
	str(&config.GraphAPIBaseURL, c.GraphAPIBaseURL)
	str(&config.RabbitMQURL, c.RabbitMQURL)
	str(&config.RedisURL, c.RedisURL)
	str(&config.AutoPublishSchedule, c.AutoPublishSchedule)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.HTTPTimeout.Duration > 0 {
		config.HTTPTimeout = c.HTTPTimeout.Duration
	}
	if c.RetryBaseDelay.Duration > 0 {
		config.RetryBaseDelay = c.RetryBaseDelay.Duration
	}
	if c.RetryMaxAttempts > 0 {
		config.RetryMaxAttempts = c.RetryMaxAttempts
	}
	if c.MaxBatchDays > 0 {
		config.MaxBatchDays = c.MaxBatchDays
	}
	if c.DiacriticsLanguages != nil {
		config.DiacriticsLanguages = c.DiacriticsLanguages
	}
	return nil
}
