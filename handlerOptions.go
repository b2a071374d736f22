package eventgroup

import (
	"log/slog"
	"time"
)

// HandlerOptions are used to customize the slog.Handler that collects records
// into event groups.
//
// NB: The struct pointer options approach is used to be consistent with the
// approach used in the standard library for `HandlerOptions`.
type HandlerOptions struct {

	// Level reports the minimum record level that will be logged. The handler
	// discards records with lower levels. If Level is nil, the handler assumes
	// LevelInfo. The handler calls Level.Level for each record processed; to
	// adjust the minimum level dynamically, use a LevelVar.
	Level slog.Leveler

	// TimeFormat controls how time values inside log contents get serialized.
	// This does not change the timestamp of the LogEvent itself. The default
	// is time.RFC3339Nano.
	TimeFormat string

	// AddSource causes the handler to compute the source code position of the
	// log statement and add a SourceKey content to the LogEvent.
	AddSource bool

	// BatchSize is the number of LogEvents collected into one group before it
	// is flushed to the Sink. The default is 256.
	BatchSize int

	// FlushInterval, when > 0, flushes a non-empty group on a timer, so that
	// quiet loggers still deliver. The default is 0 (flush on BatchSize only).
	FlushInterval time.Duration

	// ArenaChunkSize sets the chunk size of each group's Arena. The default is
	// DefaultChunkSize.
	ArenaChunkSize int

	// Tags are set as group tags on every flushed group.
	Tags map[string]string

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const (
	defaultTimeFormat = time.RFC3339Nano
	defaultBatchSize  = 256
)

// DefaultHandlerOptions returns *HandlerOptions with all default values.
func DefaultHandlerOptions() *HandlerOptions {
	return &HandlerOptions{
		Level:          slog.LevelInfo,
		TimeFormat:     defaultTimeFormat,
		BatchSize:      defaultBatchSize,
		ArenaChunkSize: DefaultChunkSize,
	}
}

// resolve ensures that all options have valid values.
func (o *HandlerOptions) resolve() {

	// set default log level if not provided
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	// set time format if missing
	if len(o.TimeFormat) == 0 {
		o.TimeFormat = defaultTimeFormat
	}

	// must be positive
	if o.BatchSize < 1 {
		o.BatchSize = defaultBatchSize
	}

	if o.FlushInterval < 0 {
		o.FlushInterval = 0
	}

	if o.ArenaChunkSize < 1 {
		o.ArenaChunkSize = DefaultChunkSize
	}
}
