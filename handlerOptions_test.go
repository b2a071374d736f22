package eventgroup

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestWithSourceInfo(t *testing.T) {
	sink := &testSink{}
	h := NewHandlerCustom(sink, nil)

	// check config
	if h.AddSource {
		t.Fatal("expected default for `AddSource` to be false")
	}

	// check results
	slog.New(h).Info("test-msg", "k", "v")
	h.Flush(context.Background())
	if _, ok := sink.logs()[0][slog.SourceKey]; ok {
		t.Fatal("expected default NOT to include source info")
	}

	// new handler with option enabled
	h = NewHandlerCustom(sink, &HandlerOptions{AddSource: true})
	if !h.AddSource {
		t.Fatal("expected`AddSource` to be true")
	}
}

func TestHandler_LogLevelOption(t *testing.T) {
	sink := &testSink{}
	h := NewHandlerCustom(sink, nil)
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("expected debug logs to be disabled by default")
	}
	if !h.Enabled(ctx, slog.LevelInfo) {
		t.Fatal("expected info logs to be enabled by default")
	}

	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	h = NewHandlerCustom(sink, &HandlerOptions{Level: lvl})
	l := slog.New(h)
	l.Info("dropped")
	l.Warn("kept")
	h.Flush(ctx)

	logs := sink.logs()
	if len(logs) != 1 || logs[0]["msg"] != "kept" {
		t.Fatalf("expected only the warn log, got: %v", logs)
	}

	// levels can change dynamically
	lvl.Set(slog.LevelDebug)
	if !h.Enabled(ctx, slog.LevelDebug) {
		t.Fatal("expected debug logs to be enabled after the LevelVar changed")
	}
}

func TestHandlerOptions_resolve(t *testing.T) {
	opts := &HandlerOptions{BatchSize: -1, FlushInterval: -time.Second, ArenaChunkSize: -1}
	opts.resolve()

	if opts.Level.Level() != slog.LevelInfo {
		t.Errorf("expected default level INFO, got: %s", opts.Level.Level())
	}
	if opts.TimeFormat != defaultTimeFormat {
		t.Errorf("expected default time format, got: %s", opts.TimeFormat)
	}
	if opts.BatchSize != defaultBatchSize {
		t.Errorf("expected default batch size, got: %d", opts.BatchSize)
	}
	if opts.FlushInterval != 0 {
		t.Errorf("expected negative flush interval to be disabled, got: %s", opts.FlushInterval)
	}
	if opts.ArenaChunkSize != DefaultChunkSize {
		t.Errorf("expected default arena chunk size, got: %d", opts.ArenaChunkSize)
	}

	d := DefaultHandlerOptions()
	if d.BatchSize != defaultBatchSize || d.TimeFormat != defaultTimeFormat || d.Level != slog.LevelInfo {
		t.Errorf("unexpected defaults: %+v", d)
	}
}
