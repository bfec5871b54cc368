package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// sink is shared by a logger and every child created with Named.
type sink struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	fileLog *os.File
	quiet   bool
}

// Logger handles leveled printf-style logging with optional file output.
type Logger struct {
	Verbose bool
	prefix  string
	s       *sink
}

// New creates a new Logger writing to stdout and stderr.
func New(verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		s:       &sink{out: os.Stdout, errOut: os.Stderr},
	}
}

// NewWithWriter creates a Logger that sends everything to w. Used by tests
// and by the web server when it runs behind a supervisor.
func NewWithWriter(w io.Writer, verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		s:       &sink{out: w, errOut: w},
	}
}

// Named returns a child logger that tags its lines with component.
func (l *Logger) Named(component string) *Logger {
	prefix := component
	if l.prefix != "" {
		prefix = l.prefix + "." + component
	}
	return &Logger{Verbose: l.Verbose, prefix: prefix, s: l.s}
}

// SetFileLog enables logging to a file
func (l *Logger) SetFileLog(path string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.s.fileLog = f
	return nil
}

// SetQuiet suppresses console output for Info/Warn/Debug, e.g. while the
// interactive shell owns the terminal. File logging is unaffected.
func (l *Logger) SetQuiet(quiet bool) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.quiet = quiet
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if l.s.fileLog != nil {
		err := l.s.fileLog.Close()
		l.s.fileLog = nil
		return err
	}
	return nil
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Debug logs detailed messages only in verbose mode
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log("DEBUG", format, args...)
		return
	}
	// Debug always reaches the file, even in non-verbose mode
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.fileLog != nil {
		l.s.fileLog.WriteString(l.stamp(l.format("DEBUG", format, args...)))
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	msg := l.format("ERROR", format, args...)
	fmt.Fprint(l.s.errOut, msg)

	if l.s.fileLog != nil {
		l.s.fileLog.WriteString(l.stamp(msg))
	}
}

func (l *Logger) log(level, format string, args ...interface{}) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	msg := l.format(level, format, args...)

	if l.Verbose || !l.s.quiet {
		fmt.Fprint(l.s.out, msg)
	}

	if l.s.fileLog != nil {
		l.s.fileLog.WriteString(l.stamp(msg))
	}
}

func (l *Logger) format(level, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = l.prefix + ": " + msg
	}
	if level == "INFO" {
		return msg + "\n"
	}
	return "[" + level + "] " + msg + "\n"
}

func (l *Logger) stamp(msg string) string {
	return time.Now().Format("2006-01-02 15:04:05") + " " + msg
}
