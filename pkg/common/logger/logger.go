package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	Log      *logrus.Logger
	fallback sync.Once
)

// Init configures the process logger. Diagnostics always go to stderr so that
// stdout stays free for anything a caller might pipe.
func Init() {
	InitWithOutput(os.Stderr)
}

func InitWithOutput(out io.Writer) {
	Log = logrus.New()
	Log.SetOutput(out)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Log.SetLevel(logLevel)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return ensure().WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return ensure().WithFields(fields)
}

// ensure covers library code that logs before main called Init. The fallback
// runs at most once.
func ensure() *logrus.Logger {
	fallback.Do(func() {
		if Log == nil {
			Init()
		}
	})
	return Log
}
