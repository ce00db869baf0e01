package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/case-service/internal/config"
)

func TestNewLogger_Level(t *testing.T) {
	testCases := []struct {
		name  string
		cfg   config.LoggerConfig
		debug bool
		info  bool
	}{
		{name: "debug console", cfg: config.LoggerConfig{Level: "DEBUG", Format: "console", Development: true}, debug: true, info: true},
		{name: "warn json", cfg: config.LoggerConfig{Level: "warn"}, debug: false, info: false},
		{name: "unknown level falls back to info", cfg: config.LoggerConfig{Level: "chatty"}, debug: false, info: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewLogger(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.debug, logger.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, tc.info, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}
