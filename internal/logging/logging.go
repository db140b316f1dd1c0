package logging

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ANSI color codes for terminal output
const (
	colorRed    = "\033[97;41m"
	colorGreen  = "\033[97;42m"
	colorYellow = "\033[90;43m"
	colorBlue   = "\033[97;44m"
	colorCyan   = "\033[97;46m"
	colorReset  = "\033[0m"
)

// Log levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger is a leveled printf-style logger. When created from a Config with a
// file, output goes to both the rotated file and stdout.
type Logger struct {
	*log.Logger
	writer   *lumberjack.Logger
	minLevel int
	logHTTP  bool
}

// NewLogger builds a Logger from config. An empty File logs to stdout only.
func NewLogger(config *Config) (*Logger, error) {
	level := strings.ToLower(config.Level)
	rank, ok := levelRank[level]
	if !ok {
		rank = levelRank[LevelInfo]
	}

	if config.File == "" {
		return &Logger{
			Logger:   log.New(os.Stdout, "", log.LstdFlags),
			minLevel: rank,
			logHTTP:  config.LogRequests,
		}, nil
	}

	logFile := config.File
	if strings.HasPrefix(logFile, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		logFile = filepath.Join(homeDir, logFile[2:])
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   true,
	}

	return &Logger{
		Logger:   log.New(io.MultiWriter(writer, os.Stdout), "", log.LstdFlags),
		writer:   writer,
		minLevel: rank,
		logHTTP:  config.LogRequests,
	}, nil
}

// NewWriterLogger logs to w at the given level. Used by tests and the CLI.
func NewWriterLogger(w io.Writer, level string) *Logger {
	rank, ok := levelRank[strings.ToLower(level)]
	if !ok {
		rank = levelRank[LevelInfo]
	}
	return &Logger{Logger: log.New(w, "", log.LstdFlags), minLevel: rank}
}

func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Close()
}

func (l *Logger) enabled(level string) bool {
	return levelRank[level] >= l.minLevel
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.enabled(LevelDebug) {
		return
	}
	l.Printf(colorBlue+"[DEBUG]"+colorReset+" "+format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	if !l.enabled(LevelInfo) {
		return
	}
	l.Printf(colorGreen+"[INFO]"+colorReset+" "+format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if !l.enabled(LevelWarn) {
		return
	}
	l.Printf(colorYellow+"[WARN]"+colorReset+" "+format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.Printf(colorRed+"[ERROR]"+colorReset+" "+format, v...)
}

// FormatHTTPMethod returns a colored string based on the HTTP method
func (l *Logger) FormatHTTPMethod(method string) string {
	var color string
	switch method {
	case http.MethodPost:
		color = colorCyan
	case http.MethodPut, http.MethodPatch:
		color = colorYellow
	case http.MethodDelete:
		color = colorRed
	default:
		color = colorBlue
	}
	return fmt.Sprintf("%s %s %s", color, method, colorReset)
}

// FormatHTTPStatus returns a colored string based on the status code
func (l *Logger) FormatHTTPStatus(status int) string {
	var color string
	switch {
	case status >= 500:
		color = colorRed
	case status >= 400:
		color = colorYellow
	case status >= 300:
		color = colorCyan
	case status >= 200:
		color = colorGreen
	default:
		color = colorBlue
	}
	return fmt.Sprintf("%s %d %s", color, status, colorReset)
}

// LogHTTPRequest logs one served request. Disabled unless LogRequests is set.
func (l *Logger) LogHTTPRequest(method, path, clientIP string, status, bytes int, latency string) {
	if !l.logHTTP {
		return
	}
	l.Printf("[HTTP] %s | %15s | %-17s | %s | %d bytes | %s",
		l.FormatHTTPStatus(status),
		clientIP,
		l.FormatHTTPMethod(method),
		path,
		bytes,
		latency,
	)
}

// LogHTTPError logs a failed request regardless of LogRequests.
func (l *Logger) LogHTTPError(method, path, clientIP string, status int, message string, err error) {
	l.Printf("[HTTP-ERROR] %s | %15s | %-17s | %s | %s: %v",
		l.FormatHTTPStatus(status),
		clientIP,
		l.FormatHTTPMethod(method),
		path,
		message,
		err,
	)
}
