package amf0

import (
	"github.com/torresjeff/amf/rand"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option configures a single Decode or Encode call.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for debug events, including those of embedded AMF3 values.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) sessionLogger(op string) *zap.Logger {
	if !o.logger.Core().Enabled(zapcore.DebugLevel) {
		return o.logger
	}
	return o.logger.With(zap.String("session", rand.GenerateSessionId()), zap.String("op", op))
}
