package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Level is a log severity.
type Level int

const (
	// DEBUG log level.
	DEBUG Level = iota - 1
	// INFO log level.
	INFO
	// WARN log level.
	WARN
	// ERROR log level.
	ERROR
)

func (level Level) String() string {
	return strings.ToLower(level.AsZap().CapitalString())
}

// LevelFromString parses a case-insensitive level name, as used by the log_level setting.
func LevelFromString(inp string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(inp)) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, errors.Errorf("unknown log level %q", inp)
}

// AsZap converts the Level to a `zapcore.Level`. Levels past ERROR clamp to it.
func (level Level) AsZap() zapcore.Level {
	if level > ERROR {
		return zapcore.ErrorLevel
	}
	if level < DEBUG {
		return zapcore.DebugLevel
	}
	// the constants share zap's numbering
	return zapcore.Level(level)
}

func levelFromZap(level zapcore.Level) Level {
	if level > zapcore.ErrorLevel {
		return ERROR
	}
	return Level(level)
}
