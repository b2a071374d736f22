package eventgroup

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var internalLogger atomic.Pointer[log.Logger]

func init() {
	internalLogger.Store(log.New(os.Stderr, "[eventgroup] ", log.LstdFlags))
}

// InternalLogger returns the Logger used to write out internal logs: failed
// deliveries, flushes that could not reach their Sink, and the debug output of
// stages with Verbose set.
func InternalLogger() *log.Logger { return internalLogger.Load() }

// SetInternalLogger makes l the internal logger. It is safe to call
// concurrently with pipeline stages that are writing internal logs. A nil l
// silences internal logging.
func SetInternalLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	internalLogger.Store(l)
}

// stageLog writes the internal logs of one pipeline stage, each line prefixed
// with the stage name.
type stageLog struct {
	name    string
	verbose bool
}

func (l stageLog) debugf(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.errorf(format, args...)
}

func (l stageLog) errorf(format string, args ...any) {
	if len(l.name) > 0 {
		format = l.name + ": " + format
	}
	InternalLogger().Printf(format, args...)
}
