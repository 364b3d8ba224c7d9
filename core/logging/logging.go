// Package logging creates per-package zap loggers with adjustable levels.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root = zap.New(zapcore.NewCore(
	zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	zapcore.Lock(os.Stderr),
	zap.DebugLevel,
))

// New creates a logger for a package.
// Its level is initialized from $PKTGRAPH_LOG and can be changed with SetLevel.
//
// Each package declares one logger next to its package comment:
//
//	var logger = logging.New("graph")
func New(pkg string) *zap.Logger {
	return root.Named(pkg).WithOptions(zap.IncreaseLevel(atomicLevel(pkg)))
}
