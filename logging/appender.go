package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeFormat is the timestamp layout of console and file output.
const TimeFormat = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. Any zapcore.Core satisfies it.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync flushes buffered entries.
	Sync() error
}

// ConsoleAppender writes one tab separated line per entry: time, level, logger name, caller,
// message and the fields as a JSON object.
type ConsoleAppender struct {
	mu sync.Mutex
	io.Writer
}

// NewWriterAppender creates a new appender that outputs to the input io.Writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{Writer: writer}
}

// NewFileAppender creates an appender writing to filename. The file is rotated once it grows past
// maxSizeMB megabytes, keeping maxBackups old files.
func NewFileAppender(filename string, maxSizeMB, maxBackups int) *ConsoleAppender {
	return &ConsoleAppender{Writer: &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}}
}

// Write outputs the log entry to the underlying stream.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	parts := []string{entry.Time.Format(TimeFormat), entry.Level.CapitalString()}
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, entry.Caller.TrimmedPath())
	}
	parts = append(parts, entry.Message)
	if len(fields) > 0 {
		encoded, err := encodeFields(fields)
		if err != nil {
			return err
		}
		parts = append(parts, encoded)
	}

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err := fmt.Fprintln(appender.Writer, strings.Join(parts, "\t"))
	return err
}

// Sync closes the underlying writer when it is a rotating file and is a no-op otherwise.
func (appender *ConsoleAppender) Sync() error {
	appender.mu.Lock()
	defer appender.mu.Unlock()
	if closer, ok := appender.Writer.(*lumberjack.Logger); ok {
		return closer.Close()
	}
	return nil
}

// encodeFields keeps the fields in call order.
func encodeFields(fields []zapcore.Field) (string, error) {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return "", err
	}
	defer buf.Free()
	return buf.String(), nil
}
