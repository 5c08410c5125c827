package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/ttacon/chalk"
)

// Logger filters and prints messages to a destination
type Logger struct {
	output io.Writer
	prefix string
	info   bool
	warn   bool
	err    bool
	debug  bool
}

// New returns an instance of Logger. Errors are always printed; the other
// levels start disabled.
func New(output io.Writer) *Logger {
	return &Logger{output: output, err: true}
}

// SetInfo activates/deactivates info level
func (l *Logger) SetInfo(value bool) {
	l.info = value
}

// SetWarn activates/deactivates warn level
func (l *Logger) SetWarn(value bool) {
	l.warn = value
}

// SetError activates/deactivates error level
func (l *Logger) SetError(value bool) {
	l.err = value
}

// SetDebug activates/deactivates debug level
func (l *Logger) SetDebug(value bool) {
	l.debug = value
}

// WithStage returns a copy of l that prefixes every message with the stage
// name, e.g. "[pack] ".
func (l *Logger) WithStage(stage string) *Logger {
	c := *l
	c.prefix = "[" + stage + "] "
	return &c
}

// Logf writes a formatted message to the specified output
func (l *Logger) Logf(format string, a ...interface{}) {
	msg := strings.TrimSuffix(fmt.Sprintf(format, a...), "\n")
	fmt.Fprintln(l.output, msg)
}

// Log writes message to the specified output
func (l *Logger) Log(a ...interface{}) {
	fmt.Fprintln(l.output, a...)
}

func (l *Logger) colored(color chalk.Color, msg string) {
	l.Log(color.Color(l.prefix + strings.TrimSuffix(msg, "\n")))
}

// Info checks info level is activated to write the message
func (l *Logger) Info(a ...interface{}) {
	if l.info {
		l.colored(chalk.Blue, fmt.Sprint(a...))
	}
}

// Infof checks info level is activated to write the formatted message
func (l *Logger) Infof(format string, a ...interface{}) {
	if l.info {
		l.colored(chalk.Blue, fmt.Sprintf(format, a...))
	}
}

// Warn checks warn level is activated to write the message
func (l *Logger) Warn(a ...interface{}) {
	if l.warn {
		l.colored(chalk.Yellow, fmt.Sprint(a...))
	}
}

// Warnf checks warn level is activated to write the formatted message
func (l *Logger) Warnf(format string, a ...interface{}) {
	if l.warn {
		l.colored(chalk.Yellow, fmt.Sprintf(format, a...))
	}
}

// Error checks error level is activated to write error object
func (l *Logger) Error(err error) {
	if l.err {
		l.colored(chalk.Red, err.Error())
	}
}

// Errorf checks error level is activated to write the formatted message
func (l *Logger) Errorf(format string, a ...interface{}) {
	if l.err {
		l.colored(chalk.Red, fmt.Sprintf(format, a...))
	}
}

// Debug checks debug level is activated to write the message
func (l *Logger) Debug(a ...interface{}) {
	if l.debug {
		l.colored(chalk.Cyan, fmt.Sprint(a...))
	}
}

// Debugf checks debug level is activated to write the message
func (l *Logger) Debugf(format string, a ...interface{}) {
	if l.debug {
		l.colored(chalk.Cyan, fmt.Sprintf(format, a...))
	}
}

// DebugEnabled reports whether debug messages are printed.
func (l *Logger) DebugEnabled() bool {
	return l.debug
}
