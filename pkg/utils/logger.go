// Package utils holds small shared helpers for Locus.
package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. Debug mode uses the human-readable
// development encoder at debug level; otherwise JSON at info level. Both
// write to stderr so search results on stdout stay machine-parseable.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
