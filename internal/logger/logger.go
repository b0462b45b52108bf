package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger with the production configuration
func NewLogger() *zap.Logger {
	logger, err := NewProductionLogger()
	if err != nil {
		// Fallback to no-op logger if production logger fails
		return zap.NewNop()
	}
	return logger
}

// NewLoggerWithDebug creates a zap logger whose verbosity follows the debug setting
func NewLoggerWithDebug(debug bool) *zap.Logger {
	if debug {
		logger, err := NewDevelopmentLogger()
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}
	return NewLogger()
}

// NewProductionLogger creates a zap logger configured for production use,
// with ISO8601 timestamps and sampling disabled
func NewProductionLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Sampling = nil
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build production logger: %w", err)
	}
	return logger, nil
}

// NewDevelopmentLogger creates a zap logger configured for development use,
// with colored console output at debug level
func NewDevelopmentLogger() (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build development logger: %w", err)
	}
	return logger, nil
}
