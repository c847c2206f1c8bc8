package noise

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	writers     LogWriters
	runTag      string
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	writers = w
	rebuildLoggers()
}

// SetRunTag adds tag to the prefix of every stream so lines of concurrent
// runs sharing a writer can be told apart. An empty tag restores the plain
// "[noise] " prefix.
func SetRunTag(tag string) {
	mu.Lock()
	defer mu.Unlock()
	runTag = tag
	rebuildLoggers()
}

func rebuildLoggers() {
	prefix := "[noise] "
	if runTag != "" {
		prefix = "[noise " + runTag + "] "
	}
	opsLogger = newLogger(prefix, writers.Ops)
	diagLogger = newLogger(prefix, writers.Diag)
	traceLogger = newLogger(prefix, writers.Trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
}

func logf(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs to the ops stream (run lifecycle, configuration errors).
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	logf(l, format, args...)
}

// Diagf logs to the diag stream: skipped geometry, truncated mirror sets
// and pruned sources.
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	logf(l, format, args...)
}

// Tracef logs to the trace stream (per source-receiver pair detail).
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	logf(l, format, args...)
}
