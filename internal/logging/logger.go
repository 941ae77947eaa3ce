package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"invocation-adapter/internal/config"

	"github.com/sirupsen/logrus"
)

// New constructs a logrus logger according to the runtime environment.
// Development gets human readable text; Lambda and production emit JSON.
func New(cfg config.LogConfig, writers ...io.Writer) (*logrus.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)

	if len(writers) > 0 {
		logger.SetOutput(io.MultiWriter(writers...))
	} else {
		logger.SetOutput(os.Stdout)
	}

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	return logger, nil
}

func parseLevel(level string) (logrus.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(strings.ToLower(level))
}
