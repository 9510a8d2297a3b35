package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshlebed/media-metadata-backup-machine/internal/utils"
)

const (
	testLogMessageConstant       = "pipeline started"
	testUnsupportedLevelConstant = "verbose"
	testUnsupportedFormatField   = "xml"
)

func TestLoggerFactoryRejectsUnsupportedSettings(testInstance *testing.T) {
	loggerFactory := utils.NewLoggerFactory()

	testCases := []struct {
		name      string
		logLevel  utils.LogLevel
		logFormat utils.LogFormat
	}{
		{
			name:      "unsupported_level",
			logLevel:  utils.LogLevel(testUnsupportedLevelConstant),
			logFormat: utils.LogFormatConsole,
		},
		{
			name:      "unsupported_format",
			logLevel:  utils.LogLevelInfo,
			logFormat: utils.LogFormat(testUnsupportedFormatField),
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			logger, creationError := loggerFactory.CreateLogger(testCase.logLevel, testCase.logFormat, "")
			require.Error(testInstance, creationError)
			require.Nil(testInstance, logger)
		})
	}
}

func TestLoggerFactoryAppendsTimestampedLinesToLogFile(testInstance *testing.T) {
	logFilePath := filepath.Join(testInstance.TempDir(), "logs", "update.log")
	loggerFactory := utils.NewLoggerFactory()

	logger, creationError := loggerFactory.CreateLogger(utils.LogLevelInfo, utils.LogFormatConsole, logFilePath)
	require.NoError(testInstance, creationError)

	logger.Info(testLogMessageConstant)
	_ = logger.Sync()

	logContents, readError := os.ReadFile(logFilePath)
	require.NoError(testInstance, readError)

	logText := string(logContents)
	require.Contains(testInstance, logText, testLogMessageConstant)
	require.True(testInstance, strings.HasPrefix(logText, "["), "log lines must begin with a bracketed timestamp")
}

func TestLoggerFactoryAppendsAcrossRuns(testInstance *testing.T) {
	logFilePath := filepath.Join(testInstance.TempDir(), "update.log")
	loggerFactory := utils.NewLoggerFactory()

	for runIndex := 0; runIndex < 2; runIndex++ {
		logger, creationError := loggerFactory.CreateLogger(utils.LogLevelInfo, utils.LogFormatConsole, logFilePath)
		require.NoError(testInstance, creationError)
		logger.Info(testLogMessageConstant)
		_ = logger.Sync()
	}

	logContents, readError := os.ReadFile(logFilePath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, 2, strings.Count(string(logContents), testLogMessageConstant))
}
