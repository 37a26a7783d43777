package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid anonymous", Config{Endpoint: "localhost:9000", Bucket: "bb"}, false},
		{"valid with keys", Config{Endpoint: "localhost:9000", Bucket: "bb", AccessKey: "a", SecretKey: "s"}, false},
		{"no endpoint", Config{Bucket: "bb"}, true},
		{"no bucket", Config{Endpoint: "localhost:9000"}, true},
		{"half credentials", Config{Endpoint: "localhost:9000", Bucket: "bb", AccessKey: "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Endpoint: "s3.local"}.Enabled())
}

func TestNewMinIO(t *testing.T) {
	s, err := NewMinIO(Config{Endpoint: "localhost:9000", Bucket: "bb", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "bb", s.bucket)

	_, err = NewMinIO(Config{})
	assert.Error(t, err)
}

func TestRunKey(t *testing.T) {
	assert.Equal(t, "p1/r1/stdout", RunKey("p1", "r1", "stdout"))
}
