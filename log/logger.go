// File: log/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Logging facade shared by the accept engine, the cork tracker and the server.

package log

// Level specifies the log level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarningLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging contract used across the module.
type Logger interface {
	Debug(...any)
	Debugf(string, ...any)
	Info(...any)
	Infof(string, ...any)
	Warn(...any)
	Warnf(string, ...any)
	Error(...any)
	Errorf(string, ...any)
	// Enabled reports whether messages at level would be written.
	Enabled(level Level) bool
	// With returns a child logger carrying the key/value pairs.
	With(keyValues ...any) Logger
}
