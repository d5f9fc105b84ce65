package bridge

// Logger defines the interface for bridge logging.
// The bridge uses structured logging with key-value pairs, so module
// registration, hook failures and observer panics show up consistently
// in whatever logging library the host application uses.
//
//	logger.Info("Module registered", "module", "Clipboard", "methods", 2)
//
// This approach is compatible with slog, zerolog, logrus, zap and others.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// NopLogger discards everything. It is the default when no logger is
// configured.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}
