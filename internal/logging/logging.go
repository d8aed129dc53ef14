// Package logging builds the zap loggers shared by the sync and the auxiliary tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Levels understood by the command line. VerboseLevel sits between debug and info,
// so zap's own DebugLevel is reused for it and DebugLevel is one step below.
const (
	DebugLevel   = zapcore.DebugLevel - 1
	VerboseLevel = zapcore.DebugLevel
	InfoLevel    = zapcore.InfoLevel
	WarnLevel    = zapcore.WarnLevel
	ErrorLevel   = zapcore.ErrorLevel
)

// LogFileEnv names the environment variable that tees log output into a rotating file.
const LogFileEnv = "AIRTABLE_SYNC_LOG_FILE"

const timeLayout = "2006-01-02 15:04:05"

var levelNames = map[string]zapcore.Level{
	"debug":   DebugLevel,
	"verbose": VerboseLevel,
	"info":    InfoLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
}

// ParseLevel maps a level name to a zap level. Unknown names fall back to error.
func ParseLevel(name string) zapcore.Level {
	if lvl, ok := levelNames[strings.ToLower(name)]; ok {
		return lvl
	}
	return ErrorLevel
}

// LevelName returns the three letter tag printed for a level.
func LevelName(l zapcore.Level) string {
	switch {
	case l <= DebugLevel:
		return "DEB"
	case l == VerboseLevel:
		return "VER"
	case l == InfoLevel:
		return "INF"
	case l == WarnLevel:
		return "WAR"
	case l == ErrorLevel:
		return "ERR"
	default:
		return strings.ToUpper(l.String())[:3]
	}
}

// Options configures New.
type Options struct {
	Level zapcore.Level
	// Output defaults to stderr.
	Output io.Writer
	// File, when set, receives a copy of every entry with size based rotation.
	File string
}

// New returns a console logger in the "time level caller - message" layout.
func New(opts Options) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		CallerKey:        "caller",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeLevel:      encodeLevel,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	enabler := zap.NewAtomicLevelAt(opts.Level)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), enabler),
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(rotator), enabler))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// FromEnv builds a logger at the given level, honouring LogFileEnv.
func FromEnv(level zapcore.Level) *zap.Logger {
	return New(Options{Level: level, File: os.Getenv(LogFileEnv)})
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Verbose logs msg at VerboseLevel.
func Verbose(l *zap.Logger, msg string, fields ...zap.Field) {
	logAt(l, VerboseLevel, msg, fields...)
}

// Debug logs msg at DebugLevel, below zap's own debug.
func Debug(l *zap.Logger, msg string, fields ...zap.Field) {
	logAt(l, DebugLevel, msg, fields...)
}

// Verbosef is the printf flavour of Verbose, used for multi-line reports.
func Verbosef(l *zap.Logger, format string, args ...any) {
	logAt(l, VerboseLevel, fmt.Sprintf(format, args...))
}

func logAt(l *zap.Logger, lvl zapcore.Level, msg string, fields ...zap.Field) {
	if l == nil {
		return
	}
	if ce := l.WithOptions(zap.AddCallerSkip(2)).Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(LevelName(l))
}
