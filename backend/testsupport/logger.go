package testsupport

import "sync"

// NoopLogger is a test helper that satisfies logging.Interface without emitting output.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...string) {}
func (NoopLogger) Info(string, ...string)  {}
func (NoopLogger) Warn(string, ...string)  {}
func (NoopLogger) Error(string, ...string) {}

// RecordingLogger keeps every message so tests can assert on warnings and errors.
type RecordingLogger struct {
	mu       sync.Mutex
	Messages map[string][]string
}

func (r *RecordingLogger) record(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Messages == nil {
		r.Messages = map[string][]string{}
	}
	r.Messages[level] = append(r.Messages[level], message)
}

func (r *RecordingLogger) Debug(message string, _ ...string) { r.record("debug", message) }
func (r *RecordingLogger) Info(message string, _ ...string)  { r.record("info", message) }
func (r *RecordingLogger) Warn(message string, _ ...string)  { r.record("warn", message) }
func (r *RecordingLogger) Error(message string, _ ...string) { r.record("error", message) }

// Lines returns a copy of the messages logged at level.
func (r *RecordingLogger) Lines(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Messages[level]...)
}
