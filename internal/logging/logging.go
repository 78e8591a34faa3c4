// Package logging builds the zap loggers used by arangorm.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger writing to stderr. debug lowers the level to Debug,
// where query text and bind variables are traced; json selects the JSON
// encoder over the console one.
func New(debug, json bool) *zap.Logger {
	return NewWithWriter(os.Stderr, debug, json)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, debug, json bool) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(econf)
	} else {
		enc = zapcore.NewConsoleEncoder(econf)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)).Named("arangorm")
}
