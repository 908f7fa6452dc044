package logrusconfig

import (
	"io"
	"strconv"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

// ParseLevel converts a level name ("debug", "info", ...) or number into a
// logrus level. Numbers outside the valid range are clamped.
func ParseLevel(value string, fallback logrus.Level) logrus.Level {
	if level, err := logrus.ParseLevel(value); err == nil {
		return level
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < int(logrus.PanicLevel) {
			return logrus.PanicLevel
		}
		if n > int(logrus.TraceLevel) {
			return logrus.TraceLevel
		}
		return logrus.Level(n)
	}
	return fallback
}

// GetLogger creates a logger that writes plain text lines to output. The
// simulator log does not render escape codes, so colours are disabled.
func GetLogger(output io.Writer, level logrus.Level) *logrus.Entry {
	logrus.ErrorKey = "$error"
	logger := logrus.New()
	logger.SetOutput(output)

	if level > logrus.TraceLevel {
		level = logrus.TraceLevel
	}
	logger.SetLevel(level)

	customFormatter := new(prefixed.TextFormatter)
	customFormatter.DisableColors = true
	customFormatter.DisableTimestamp = true
	customFormatter.SpacePadding = 40
	logger.SetFormatter(customFormatter)
	return logrus.NewEntry(logger)
}

// WithPrefix returns an entry whose lines are tagged with prefix.
func WithPrefix(logger *logrus.Entry, prefix string) *logrus.Entry {
	return logger.WithField("prefix", prefix)
}
