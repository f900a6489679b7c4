package logginglevel

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//nolint:gochecknoglobals // shared between the CLI's --debug flag and the logger configuration
var Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
