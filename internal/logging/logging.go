// Package logging provides a single place to obtain module-scoped loggers.
package logging

import (
	"fmt"

	"github.com/Sirupsen/logrus"
)

func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

// GetLogger returns a logger with its "module" field set to name.
func GetLogger(module string) *logrus.Entry {
	if module == "" {
		logrus.Warn("missing module name parameter")
		module = "undefined"
	}
	return logrus.WithField("module", module)
}

// GetLogFormatter returns a formatter for the given format name.
// Supported formats are "text" and "json".
func GetLogFormatter(format string) (logrus.Formatter, error) {
	switch format {
	case "text":
		return &logrus.TextFormatter{DisableColors: true}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown log format: %v", format)
	}
}
