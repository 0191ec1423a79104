// internal/cmdutil/log.go
package cmdutil

import (
	"fmt"
	"io"
	"sync"
)

// Logger writes prefixed progress lines to dst. A nil *Logger discards
// everything, so packages can log unconditionally.
type Logger struct {
	mu    sync.Mutex
	dst   io.Writer
	quiet bool
}

// NewLogger returns a Logger writing to dst. quiet suppresses INFO lines;
// warnings are always written.
func NewLogger(dst io.Writer, quiet bool) *Logger {
	return &Logger{dst: dst, quiet: quiet}
}

func (l *Logger) Infof(format string, a ...any) {
	if l == nil || l.quiet {
		return
	}
	l.printf("INFO: ", format, a...)
}

func (l *Logger) Warnf(format string, a ...any) {
	if l == nil {
		return
	}
	l.printf("WARN: ", format, a...)
}

func (l *Logger) printf(prefix, format string, a ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.dst, prefix+format+"\n", a...)
}
