package control

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/familysearch/crawlengine/internal/logger"
)

// MetricsSink emits structured lifecycle events as JSON lines to a file. If
// no path is configured, events fall back to a debug-level log line so they
// are never silently dropped.
type MetricsSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *logger.Logger
}

// NewMetricsSink opens path for append, creating it if necessary. An empty
// path is valid and routes every event to the logger instead.
func NewMetricsSink(path string, log *logger.Logger) *MetricsSink {
	if log == nil {
		log = logger.NewDefault()
	}
	sink := &MetricsSink{logger: log}
	if path == "" {
		return sink
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warnf("failed to open metrics file %q, falling back to log output: %v", path, err)
		return sink
	}
	sink.file = f
	return sink
}

// Emit writes one event. name identifies the event kind (run_start,
// person_batch, iteration_complete, relationships_complete, checkpoint,
// run_complete); fields are merged alongside event/time keys.
func (m *MetricsSink) Emit(name string, fields map[string]any) {
	record := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		record[k] = v
	}
	record["event"] = name
	record["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		m.logger.Debugf("%s %v", name, fields)
		return
	}
	line, err := json.Marshal(record)
	if err != nil {
		m.logger.Warnf("failed to marshal metrics event %q: %v", name, err)
		return
	}
	line = append(line, '\n')
	if _, err := m.file.Write(line); err != nil {
		m.logger.Warnf("failed to write metrics event %q: %v", name, err)
	}
}

// Close flushes and closes the underlying file, if any.
func (m *MetricsSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}
