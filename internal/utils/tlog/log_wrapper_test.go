package tlog

import (
	"testing"

	"github.com/ssoauth/ssoauth/internal/config"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(config.LogConfig{
		Level: "debug",
		Json:  true,
		Streams: config.LogStreams{
			HTTP:  config.LogStreamConfig{Enabled: true, Level: "warn"},
			App:   config.LogStreamConfig{Enabled: true},
			Audit: config.LogStreamConfig{Enabled: false},
		},
	})

	assert.Equal(t, zerolog.WarnLevel, logger.HTTP.GetLevel())
	assert.Equal(t, zerolog.DebugLevel, logger.App.GetLevel())
	assert.Equal(t, zerolog.Disabled, logger.Audit.GetLevel())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel(""))
	assert.Equal(t, zerolog.TraceLevel, parseLogLevel("TRACE"))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("verbose"))
}

func TestSimpleLoggerInit(t *testing.T) {
	NewSimpleLogger().Init()

	assert.Equal(t, zerolog.InfoLevel, App.GetLevel())
	assert.Equal(t, zerolog.Disabled, Audit.GetLevel())
}
