// Package log is a thin wrapper around stdlib log.Logger for operator-facing
// warnings and summaries; cmd/engined is its only user, and the scanner,
// builder and PPOI pipeline do not log through it. No third-party logging library is
// pulled in: none of the pack's non-precompile repos use one, and cmd-level
// output stays plain fmt, matching cmd/ccoind/main.go's banner/flag texture.
package log

import (
	"io"
	"log"
	"os"
)

// Logger is a named, leveled wrapper around *log.Logger. The zero value is
// not usable; construct with New.
type Logger struct {
	name string
	out  *log.Logger
}

// New returns a Logger that prefixes every line with name, writing to w.
func New(name string, w io.Writer) *Logger {
	return &Logger{name: name, out: log.New(w, "", log.LstdFlags)}
}

// Default returns a Logger named name writing to stderr, the convention
// every cmd/engined component uses unless a -log-file flag redirects it.
func Default(name string) *Logger {
	return New(name, os.Stderr)
}

func (l *Logger) Infof(format string, args ...any) {
	l.out.Printf("[%s] INFO  "+format, append([]any{l.name}, args...)...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.out.Printf("[%s] WARN  "+format, append([]any{l.name}, args...)...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.out.Printf("[%s] ERROR "+format, append([]any{l.name}, args...)...)
}
