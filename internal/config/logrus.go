package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logg = NewLogger("info")

// GetLogger returns the process-wide logger configured by SetLogLevel.
func GetLogger() *logrus.Logger {
	return logg
}

// SetLogLevel changes the level of the process-wide logger. Unknown levels
// fall back to info.
func SetLogLevel(level string) {
	logg.SetLevel(parseLevel(level))
}

func NewLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(parseLevel(level))
	l.SetOutput(os.Stdout)
	return l
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
