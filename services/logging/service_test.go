package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		service, err := NewService(Config{
			Level:      Info,
			Format:     "json",
			OutputPath: "stdout",
		})

		require.NoError(t, err)
		assert.NotNil(t, service)
		assert.NotNil(t, service.logger)
		assert.NotNil(t, service.sugar)
	})

	t.Run("console format", func(t *testing.T) {
		service, err := NewService(Config{
			Level:      Debug,
			Format:     "console",
			OutputPath: "stdout",
		})

		require.NoError(t, err)
		assert.NotNil(t, service)
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		service, err := NewService(Config{
			Level:      Warn,
			Format:     "json",
			OutputPath: logFile,
		})

		require.NoError(t, err)

		service.Warn("test log entry")
		service.Sync()

		_, err = os.Stat(logFile)
		assert.NoError(t, err)
	})
}

func TestService_NilSafety(t *testing.T) {
	var service *Service

	assert.Nil(t, service.Logger())

	service.Debug("ignored")
	service.Info("ignored")
	service.Warn("ignored")
	service.Error("ignored")
	service.Sync()
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected string
	}{
		{Debug, "debug"},
		{Info, "info"},
		{Warn, "warn"},
		{Error, "error"},
		{"unknown", "info"},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input).String())
		})
	}
}
