// Package invocationlog records agent invocations as JSON lines.
//
// Writes go through a zerolog diode so Log never blocks the gateway. When
// the buffer is full the oldest lines are dropped and counted.
package invocationlog

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
)

// Ensure Log implements the interface.
var _ driven.InvocationLogger = (*Log)(nil)

const (
	// DefaultBufferSize is the number of lines held before dropping.
	DefaultBufferSize = 1024

	// DefaultPollInterval is how often the diode drains to the writer.
	DefaultPollInterval = 10 * time.Millisecond
)

// Log is a non-blocking JSON lines invocation logger.
type Log struct {
	zlog    zerolog.Logger
	writer  diode.Writer
	dropped atomic.Int64
}

// New creates a log writing to w. The writer is closed by Close when it
// implements io.Closer.
func New(w io.Writer, bufferSize int) *Log {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	l := &Log{}
	l.writer = diode.NewWriter(w, bufferSize, DefaultPollInterval, func(missed int) {
		l.dropped.Add(int64(missed))
	})
	l.zlog = zerolog.New(l.writer).With().Str("component", "gateway").Logger()
	return l
}

// Open appends to the log file at path, creating it and its directory.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	return New(f, DefaultBufferSize), nil
}

// Log records one invocation.
func (l *Log) Log(inv domain.Invocation) {
	event := l.zlog.Info()
	if inv.Error != "" {
		event = l.zlog.Warn().Str("error", inv.Error)
	}

	event.
		Time("time", inv.At).
		Str("run_id", inv.RunID).
		Str("agent_id", inv.AgentID).
		Str("stage", inv.Stage.String()).
		Int("segment", inv.SegmentOrdinal).
		Int("attempts", inv.Attempts).
		Int64("latency_ms", inv.Latency.Milliseconds()).
		Str("outcome", inv.Outcome).
		Msg("agent invocation")
}

// Dropped returns the number of lines lost to a full buffer.
func (l *Log) Dropped() int64 {
	return l.dropped.Load()
}

// Close flushes buffered lines and closes the underlying writer.
func (l *Log) Close() error {
	return l.writer.Close()
}
