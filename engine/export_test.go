package engine

import "go.uber.org/zap"

// ReplaceLogger swaps the package logger until the returned function is called.
func ReplaceLogger(l *zap.Logger) (restore func()) {
	saved := logger
	logger = l
	return func() { logger = saved }
}
