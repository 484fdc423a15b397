package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all short flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-o", ":9091", "-d", "db", "-s", "secret", "-t", "30",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
				"-k", "sk-1", "-i", "ideo-1", "-m", "10",
			},
			expected: &Config{
				EndpointAddrGRPC:            "127.0.0.1:9090",
				EndpointAddrHTTP:            ":9091",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 30 * time.Minute,
				S3RootUser:                  "user",
				S3RootPassword:              "password",
				S3Bucket:                    "bucket",
				S3Region:                    "us-west-1",
				S3BaseEndpoint:              "http://endpoint",
				OpenAIAPIKey:                "sk-1",
				IdeogramAPIKey:              "ideo-1",
				MaxBatchDays:                10,
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-env-file", ".env", "-a", ":1"},
			expected: &Config{EndpointAddrGRPC: ":1"},
		},
		{
			name:    "bad int",
			args:    []string{"-m", "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func TestParseFlags_TokenValidityUntouchedWhenAbsent(t *testing.T) {
	config := &Config{AccessTokenValidityDuration: 90 * time.Second}
	require.NoError(t, parseFlags(config, nil))
	assert.Equal(t, 90*time.Second, config.AccessTokenValidityDuration)
}
