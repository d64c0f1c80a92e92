// Package logging wraps logrus behind a small global-logger surface,
// following the teacher's pkg/logger/log convention of a package-level
// logger initialized once at process start and field-scoped per call site.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Fields map[string]interface{}

var global = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init (re)configures the global logger's level and format. Call once at
// process start; safe to call again in tests.
func Init(level string, textFormat bool) {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if textFormat {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	global = l
}

// With returns a field-scoped entry; chain .Info/.Error/.Warn/.Debug on it.
func With(fields Fields) *logrus.Entry {
	return global.WithFields(logrus.Fields(fields))
}

func Info(args ...interface{})                  { global.Info(args...) }
func Infof(format string, args ...interface{})  { global.Infof(format, args...) }
func Warn(args ...interface{})                  { global.Warn(args...) }
func Warnf(format string, args ...interface{})  { global.Warnf(format, args...) }
func Error(args ...interface{})                 { global.Error(args...) }
func Errorf(format string, args ...interface{}) { global.Errorf(format, args...) }
func Debug(args ...interface{})                 { global.Debug(args...) }
func Debugf(format string, args ...interface{}) { global.Debugf(format, args...) }
