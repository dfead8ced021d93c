package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured logger over zerolog.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Output  string // stdout, stderr, or file path
	Service string // added to every event as "service"
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	l := NewWithWriter(out, level)
	if cfg.Service != "" {
		l = l.With(String("service", cfg.Service))
	}
	return l, nil
}

func openOutput(dst string) (io.Writer, error) {
	switch dst {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(dst, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", dst, err)
	}
	return f, nil
}

// NewWithWriter builds a logger writing JSON lines to w; tests use it to capture output.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying the given fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.value())
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.apply(e)
	}
	e.Msg(msg)
}

type kind uint8

const (
	kindString kind = iota
	kindStrings
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindError
	kindAny
)

// Field is one typed key/value pair of a log event.
type Field struct {
	Key  string
	kind kind
	str  string
	strs []string
	num  int64
	flt  float64
	err  error
	val  interface{}
}

func (f Field) apply(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.Key, f.str)
	case kindStrings:
		e.Strs(f.Key, f.strs)
	case kindInt:
		e.Int64(f.Key, f.num)
	case kindFloat:
		e.Float64(f.Key, f.flt)
	case kindBool:
		e.Bool(f.Key, f.num == 1)
	case kindDuration:
		e.Dur(f.Key, time.Duration(f.num))
	case kindError:
		e.AnErr(f.Key, f.err)
	default:
		e.Interface(f.Key, f.val)
	}
}

func (f Field) value() interface{} {
	switch f.kind {
	case kindString:
		return f.str
	case kindStrings:
		return f.strs
	case kindInt:
		return f.num
	case kindFloat:
		return f.flt
	case kindBool:
		return f.num == 1
	case kindDuration:
		return time.Duration(f.num).String()
	case kindError:
		if f.err == nil {
			return nil
		}
		return f.err.Error()
	}
	return f.val
}

func String(key, value string) Field { return Field{Key: key, kind: kindString, str: value} }

func Strings(key string, value []string) Field { return Field{Key: key, kind: kindStrings, strs: value} }

func Int(key string, value int) Field { return Field{Key: key, kind: kindInt, num: int64(value)} }

func Float64(key string, value float64) Field { return Field{Key: key, kind: kindFloat, flt: value} }

func Bool(key string, value bool) Field {
	f := Field{Key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

// Duration is logged in milliseconds, zerolog's default duration unit.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, kind: kindDuration, num: int64(value)}
}

func Error(err error) Field { return Field{Key: zerolog.ErrorFieldName, kind: kindError, err: err} }

func Any(key string, value interface{}) Field { return Field{Key: key, kind: kindAny, val: value} }
