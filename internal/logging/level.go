// SPDX-License-Identifier:Apache-2.0

// Package logging sets up go-kit structured logging for the exporter
// and lets the level be changed while it runs.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
)

// Level is the name of a log verbosity.
type Level string

const (
	LevelAll   Level = "all"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelNone  Level = "none"
)

// LevelFallback is returned along with the error for unknown names.
var LevelFallback = LevelInfo

var options = map[Level]func() level.Option{
	LevelAll:   level.AllowAll,
	LevelDebug: level.AllowDebug,
	LevelInfo:  level.AllowInfo,
	LevelWarn:  level.AllowWarn,
	LevelError: level.AllowError,
	LevelNone:  level.AllowNone,
}

// ParseLevel parses a level name, ignoring case. "all" is treated as debug,
// go-kit has nothing below it.
func ParseLevel(l string) (Level, error) {
	parsed := Level(strings.ToLower(strings.TrimSpace(l)))
	if parsed == LevelAll {
		return LevelDebug, nil
	}
	if _, ok := options[parsed]; !ok {
		return LevelFallback, fmt.Errorf("invalid log level %q, must be one of: %s", l, Levels)
	}
	return parsed, nil
}

// ToOption returns the go-kit filter option letting through l and above.
func (l Level) ToOption() (level.Option, error) {
	opt, ok := options[l]
	if !ok {
		return options[LevelFallback](), fmt.Errorf("invalid level %q, using %s", l, LevelFallback)
	}
	return opt(), nil
}

type levelSlice []Level

// Levels lists the accepted level names.
var Levels = levelSlice{LevelAll, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelNone}

func (l levelSlice) String() string {
	strs := make([]string, len(l))
	for i, v := range l {
		strs[i] = string(v)
	}
	return strings.Join(strs, ", ")
}
