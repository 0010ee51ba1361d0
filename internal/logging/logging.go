// SPDX-License-Identifier:Apache-2.0

package logging

import (
	"io"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is a go-kit logger whose level filter can be swapped at runtime.
type Logger struct {
	mu       sync.RWMutex
	base     log.Logger
	filtered log.Logger
	level    Level
}

// callerDepth skips the frames between the caller valuer and the code
// logging through level.X(l) or log.With(l, ...): the base context, the
// level filter, Logger.Log and the outer context.
const callerDepth = 6

// Init returns a JSON logger writing to w, filtered at the given level.
func Init(w io.Writer, lvl string) (*Logger, error) {
	l := log.NewJSONLogger(log.NewSyncWriter(w))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.Caller(callerDepth))

	res := &Logger{base: l}
	if err := res.SetLogLevel(lvl); err != nil {
		return nil, err
	}
	return res, nil
}

// SetLogLevel changes the level used to filter subsequent log lines.
func (l *Logger) SetLogLevel(lvl string) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	opt, err := parsed.ToOption()
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = parsed
	l.filtered = level.NewFilter(l.base, opt)
	return nil
}

// Level returns the level currently in effect.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) Log(keyvals ...interface{}) error {
	l.mu.RLock()
	filtered := l.filtered
	l.mu.RUnlock()
	return filtered.Log(keyvals...)
}

var _ log.Logger = &Logger{}
