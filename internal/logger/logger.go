package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const ServiceName = "lab-accession-backend"

var hookOnce sync.Once

// Configure sets up the standard logrus logger. Production environments log
// JSON, everything else logs text.
func Configure(level, environment string) error {
	logger := logrus.StandardLogger()
	logger.Out = os.Stdout
	if environment == "production" {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)

	hookOnce.Do(func() {
		logger.AddHook(&DefaultFieldsHook{})
	})
	return nil
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = ServiceName
	return nil
}
