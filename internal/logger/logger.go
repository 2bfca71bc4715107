package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Level represents the logging level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[Level]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// Logger is the printf-style logger shared by the server, the CLI and the
// pipeline packages.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	SetLevel(level Level)

	// Named returns a logger that tags every line with a component name.
	Named(component string) Logger
}

// LogConfig holds configuration for the logger. Empty fields fall back to
// LOG_OUTPUT, LOG_LEVEL and LOG_FILE_PATH.
type LogConfig struct {
	// Output destination: "file" or "stderr"
	Output string
	// Log level: "debug", "info", "warn", "error", "fatal"
	Level string
	// FilePath for file output, default ~/.citation-mcp/citation.log
	FilePath string
}

const (
	appDirName     = ".citation-mcp"
	defaultLogFile = "citation.log"
)

type standardLogger struct {
	logger    *log.Logger
	level     *Level
	component string
}

// NewLogger creates a logger from the configuration. MCP servers speak on
// stdout, so stdout is never a valid destination.
func NewLogger(config LogConfig) (Logger, error) {
	output := firstNonEmpty(config.Output, os.Getenv("LOG_OUTPUT"), detectEnvironment())

	var writer io.Writer
	switch output {
	case "stderr":
		writer = os.Stderr
	case "file":
		path, err := logFilePath(firstNonEmpty(config.FilePath, os.Getenv("LOG_FILE_PATH")))
		if err != nil {
			return nil, err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	default:
		return nil, fmt.Errorf("invalid log output: %s (expected 'file' or 'stderr')", output)
	}

	level := ParseLevel(firstNonEmpty(config.Level, os.Getenv("LOG_LEVEL"), "info"))
	return NewWriterLogger(writer, level), nil
}

// NewWriterLogger logs to an arbitrary writer.
func NewWriterLogger(w io.Writer, level Level) Logger {
	return &standardLogger{logger: log.New(w, "", log.LstdFlags), level: &level}
}

// NewNoOpLogger creates a logger that discards all output (useful for tests)
func NewNoOpLogger() Logger {
	level := FatalLevel
	return &standardLogger{logger: log.New(io.Discard, "", 0), level: &level}
}

func logFilePath(path string) (string, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("failed to create log directory: %w", err)
		}
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	logDir := filepath.Join(homeDir, appDirName)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return filepath.Join(logDir, defaultLogFile), nil
}

// detectEnvironment picks stderr inside containers and a file otherwise.
func detectEnvironment() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "stderr"
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "stderr"
	}
	return "file"
}

// ParseLevel converts a level name to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SetLevel changes the minimum level of this logger and every logger
// derived from it with Named.
func (l *standardLogger) SetLevel(level Level) {
	*l.level = level
}

func (l *standardLogger) Named(component string) Logger {
	if l.component != "" {
		component = l.component + "." + component
	}
	return &standardLogger{logger: l.logger, level: l.level, component: component}
}

func (l *standardLogger) Debug(format string, v ...any) { l.log(DebugLevel, format, v...) }

func (l *standardLogger) Info(format string, v ...any) { l.log(InfoLevel, format, v...) }

func (l *standardLogger) Warn(format string, v ...any) { l.log(WarnLevel, format, v...) }

func (l *standardLogger) Error(format string, v ...any) { l.log(ErrorLevel, format, v...) }

// Fatal logs a fatal message and exits
func (l *standardLogger) Fatal(format string, v ...any) {
	l.log(FatalLevel, format, v...)
	os.Exit(1)
}

func (l *standardLogger) log(level Level, format string, v ...any) {
	if level < *l.level {
		return
	}
	message := fmt.Sprintf(format, v...)
	if l.component != "" {
		l.logger.Printf("[%s] %s: %s", level, l.component, message)
		return
	}
	l.logger.Printf("[%s] %s", level, message)
}
