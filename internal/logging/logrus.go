// Package logging adapts logrus to the SDK logger interface.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logrus implements policy.Logger on top of a logrus logger.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps logger. A nil logger uses the logrus standard logger.
func NewLogrusLogger(logger *logrus.Logger) *Logrus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Logrus{entry: logrus.NewEntry(logger)}
}

// New creates a logrus-backed logger writing to out at level in format
// ("json" or "text").
func New(out io.Writer, level, format string) (*Logrus, error) {
	logrusLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("error parsing log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(logrusLevel)

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return NewLogrusLogger(logger), nil
}

// With returns a logger that adds fields to every entry.
func (l *Logrus) With(fields map[string]interface{}) *Logrus {
	return &Logrus{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logrus) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *Logrus) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *Logrus) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (l *Logrus) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Error(msg)
}
