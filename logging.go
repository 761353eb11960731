package settings

import "time"

// LogEvent describes one registry operation or expression evaluation.
type LogEvent struct {
	Group    string
	Op       string
	Key      StorageKey
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records registry events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}
