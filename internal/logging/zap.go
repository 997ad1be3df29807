package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.Logger to Logger. Fatalf logs at error level with
// a fatal field and then calls the fatal handler, so it never exits.
type ZapLogger struct {
	log     *zap.SugaredLogger
	onFatal FatalHandler
}

// NewZapLogger wraps log. A nil log is replaced with zap.NewNop.
func NewZapLogger(log *zap.Logger) *ZapLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapLogger{log: log.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// SetFatalHandler sets the handler called when Fatalf is invoked.
// It must be called before the logger is shared.
func (z *ZapLogger) SetFatalHandler(h FatalHandler) { z.onFatal = h }

// Errorf implements Logger.
func (z *ZapLogger) Errorf(format string, args ...any) { z.log.Errorf(format, args...) }

// Warnf implements Logger.
func (z *ZapLogger) Warnf(format string, args ...any) { z.log.Warnf(format, args...) }

// Infof implements Logger.
func (z *ZapLogger) Infof(format string, args ...any) { z.log.Infof(format, args...) }

// Debugf implements Logger.
func (z *ZapLogger) Debugf(format string, args ...any) { z.log.Debugf(format, args...) }

// Fatalf implements Logger.
func (z *ZapLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	z.log.Errorw(msg, "fatal", true)
	if z.onFatal != nil {
		z.onFatal(msg)
	}
}
