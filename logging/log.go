// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// A Level is a logging priority. Higher levels are more important.
type Level int8

// Logging levels (matching zap core internals).
const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel Level = -1
	// InfoLevel is the default logging priority.
	InfoLevel Level = 0
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel Level = 1
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel Level = 2
	// PanicLevel logs a message, then panics.
	PanicLevel Level = 4
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel Level = 5
)

// ErrInvalidLevel is returned when a level string cannot be parsed.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level from its name.
func ParseLevel(l string) (Level, error) {
	switch strings.ToLower(l) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "panic":
		return PanicLevel, nil
	case "fatal":
		return FatalLevel, nil
	}
	return InfoLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, l)
}

func (l Level) String() string {
	return zapcore.Level(l).String()
}

func (l Level) ZapLevel() zapcore.Level {
	return zapcore.Level(l)
}

// Logger wraps a zap logger. Every named logger owns its level so a
// component can be made more verbose without touching the others.
type Logger struct {
	*zap.Logger
	level   zap.AtomicLevel
	encoder zapcore.Encoder
	sink    zapcore.WriteSyncer
	fields  []zap.Field
	name    string
}

// New creates a logger writing entries encoded by encoder into sink.
func New(encoder zapcore.Encoder, sink zapcore.WriteSyncer, level Level) *Logger {
	log := &Logger{
		level:   zap.NewAtomicLevelAt(level.ZapLevel()),
		encoder: encoder,
		sink:    sink,
	}
	log.Logger = log.build()
	return log
}

func (log *Logger) build() *zap.Logger {
	core := zapcore.NewCore(log.encoder.Clone(), log.sink, log.level)
	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.PanicLevel))
	if log.name != "" {
		zl = zl.Named(log.name)
	}
	if len(log.fields) > 0 {
		zl = zl.With(log.fields...)
	}
	return zl
}

func (log *Logger) Clone() *Logger {
	c := &Logger{
		level:   zap.NewAtomicLevelAt(log.level.Level()),
		encoder: log.encoder,
		sink:    log.sink,
		fields:  append([]zap.Field{}, log.fields...),
		name:    log.name,
	}
	c.Logger = c.build()
	return c
}

func (log *Logger) GetLevel() Level {
	return Level(log.level.Level())
}

func (log *Logger) GetLevelString() string {
	return log.level.String()
}

func (log *Logger) GetName() string {
	return log.name
}

// IsDebug is a shortcut for callers building expensive debug fields.
func (log *Logger) IsDebug() bool {
	return log.GetLevel() == DebugLevel
}

// Named returns a copy of the logger with name appended, dot separated.
func (log *Logger) Named(name string) *Logger {
	c := log.Clone()
	if log.name == "" {
		c.name = name
	} else {
		c.name = fmt.Sprintf("%s.%s", log.name, name)
	}
	c.Logger = c.build()
	return c
}

func (log *Logger) SetLevel(level Level) {
	lvl := level.ZapLevel()
	if log.level.Level() == lvl {
		return
	}
	log.level.SetLevel(lvl)
}

func (log *Logger) With(fields ...zap.Field) *Logger {
	c := log.Clone()
	c.fields = append(c.fields, fields...)
	c.Logger = c.build()
	return c
}

// AtExit flushes the logs before exiting the process. Useful when an
// app shuts down so we store all logging possible. This is meant to be used
// with defer when initializing your logger.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}

func (log *Logger) Errorf(s string, args ...interface{}) {
	log.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Errorf(strings.TrimSpace(s), args...)
}

func (log *Logger) Warningf(s string, args ...interface{}) {
	log.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Warnf(strings.TrimSpace(s), args...)
}

func (log *Logger) Infof(s string, args ...interface{}) {
	log.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Infof(strings.TrimSpace(s), args...)
}

func (log *Logger) Debugf(s string, args ...interface{}) {
	log.Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Debugf(strings.TrimSpace(s), args...)
}

/*
	Choices: (with "*" for default)
	CallerEncoder: full*
	DurationEncoder: nanos, seconds*, string
	LevelEncoder: capital, capitalColor, color, lowercase*
	NameEncoder: full*
	TimeEncoder: epoch*, iso8601, millis, nanos
*/
func newEncoder(env string) (zapcore.Encoder, Level) {
	if env == EnvDev {
		return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			CallerKey:      "C",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeName:     zapcore.FullNameEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			LevelKey:       "L",
			LineEnding:     "\n",
			MessageKey:     "M",
			NameKey:        "N",
			StacktraceKey:  "S",
			TimeKey:        "T",
		}), DebugLevel
	}
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		LevelKey:       "level",
		LineEnding:     "\n",
		MessageKey:     "message",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		TimeKey:        "@timestamp",
	}), InfoLevel
}

// NewLoggerFromConfig builds the process logger. An unparsable level falls
// back to the environment default.
func NewLoggerFromConfig(cfg Config) *Logger {
	encoder, level := newEncoder(cfg.Environment)
	if len(cfg.Level) > 0 {
		if lvl, err := ParseLevel(cfg.Level); err == nil {
			level = lvl
		}
	}

	sink := zapcore.Lock(os.Stdout)
	if cfg.File.Enabled {
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}))
	}
	return New(encoder, sink, level)
}

// NewLoggerFromEnv builds a stdout logger for the given environment.
func NewLoggerFromEnv(env string) *Logger {
	cfg := NewDefaultConfig()
	cfg.Environment = env
	return NewLoggerFromConfig(cfg)
}

func NewDevLogger() *Logger {
	return NewLoggerFromEnv(EnvDev)
}

func NewProdLogger() *Logger {
	return NewLoggerFromEnv(EnvProd)
}

// NewTestLogger returns a dev logger at debug level so tests exercise the
// debug paths of the components under test.
func NewTestLogger() *Logger {
	return NewDevLogger()
}
