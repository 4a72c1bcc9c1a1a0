package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger writes JSON lines with level, ts and the caller's fields.
type Logger struct {
	l *logrus.Logger
}

func NewJSONLogger(w io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	return &Logger{l: l}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewJSONLogger(io.Discard)
}

// OpenFile appends to path. The caller closes the returned file.
func OpenFile(path string) (*Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return NewJSONLogger(f), f, nil
}

func (l *Logger) Info(fields map[string]any)  { l.write(logrus.InfoLevel, fields) }
func (l *Logger) Warn(fields map[string]any)  { l.write(logrus.WarnLevel, fields) }
func (l *Logger) Error(fields map[string]any) { l.write(logrus.ErrorLevel, fields) }

func (l *Logger) write(level logrus.Level, fields map[string]any) {
	msg, _ := fields["msg"].(string)
	data := make(logrus.Fields, len(fields))
	for k, v := range fields {
		if k == "msg" {
			continue
		}
		data[k] = v
	}
	l.l.WithFields(data).Log(level, msg)
}
