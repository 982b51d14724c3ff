package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultLevel = "warn"

// New builds a console logger writing to w. Command output goes to stdout,
// so callers pass stderr or a log file here.
func New(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		lvl,
	)

	return zap.New(core), nil
}

func ParseLevel(level string) (zapcore.Level, error) {
	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		trimmed = DefaultLevel
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(trimmed))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return lvl, nil
}
