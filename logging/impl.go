package logging

import (
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// appenderSet is shared by a logger and all of its subloggers.
type appenderSet struct {
	mu   sync.RWMutex
	list []Appender
}

func (s *appenderSet) add(appender Appender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, appender)
}

func (s *appenderSet) snapshot() []Appender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

// fanoutCore is the zapcore.Core behind every logger. It filters on the logger's level and hands
// accepted entries to each appender.
type fanoutCore struct {
	level     zap.AtomicLevel
	inUTC     bool
	appenders *appenderSet
	fields    []zapcore.Field
}

func (c *fanoutCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level)
}

func (c *fanoutCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *fanoutCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *fanoutCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if len(c.fields) > 0 {
		fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	}
	var errs error
	for _, appender := range c.appenders.snapshot() {
		errs = multierr.Append(errs, appender.Write(entry, fields))
	}
	return errs
}

func (c *fanoutCore) Sync() error {
	var errs error
	for _, appender := range c.appenders.snapshot() {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}

type impl struct {
	name  string
	core  *fanoutCore
	sugar *zap.SugaredLogger
}

func newImpl(name string, level Level, inUTC bool, appenders *appenderSet) *impl {
	core := &fanoutCore{level: zap.NewAtomicLevelAt(level.AsZap()), inUTC: inUTC, appenders: appenders}
	// one extra frame for the impl method between the caller and the sugared logger
	sugar := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	if name != "" {
		sugar = sugar.Named(name)
	}
	return &impl{name: name, core: core, sugar: sugar}
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = strings.Join([]string{imp.name, subname}, ".")
	}
	return newImpl(name, imp.GetLevel(), imp.core.inUTC, imp.core.appenders)
}

func (imp *impl) AddAppender(appender Appender) {
	imp.core.appenders.add(appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.core.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	return levelFromZap(imp.core.level.Level())
}

func (imp *impl) Sync() error {
	return imp.core.Sync()
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Debugw(msg, keysAndValues...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.sugar.Infow(msg, keysAndValues...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Warnw(msg, keysAndValues...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Errorw(msg, keysAndValues...)
}
