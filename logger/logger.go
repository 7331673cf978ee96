package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// LogLevel log level type.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelPrefix = map[LogLevel]string{
	DebugLevel: "[DEBUG] ",
	InfoLevel:  "[INFO] ",
	WarnLevel:  "[WARN] ",
	ErrorLevel: "[ERROR] ",
	FatalLevel: "[FATAL] ",
}

var std = New()

type Logger struct {
	level LogLevel
	lg    *log.Logger
}

func New() *Logger {
	return &Logger{
		level: InfoLevel,
		lg:    log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile),
	}
}

// SetLogLevel set the log level of the standard logger.
func SetLogLevel(level LogLevel) {
	std.level = level
}

// SetOutput set the output destination of the standard logger.
func SetOutput(w io.Writer) {
	std.lg.SetOutput(w)
}

func Debugf(format string, v ...interface{}) {
	std.output(DebugLevel, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	std.output(InfoLevel, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	std.output(WarnLevel, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	std.output(ErrorLevel, fmt.Sprintf(format, v...))
}

// Fatalf print the message and exit the program.
func Fatalf(format string, v ...interface{}) {
	std.output(FatalLevel, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (l *Logger) output(level LogLevel, msg string) {
	if level < l.level {
		return
	}
	// calldepth 3 attributes the line to the caller of the exported
	// wrapper, not to this file.
	_ = l.lg.Output(3, levelPrefix[level]+msg)
}
