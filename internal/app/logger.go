package app

import (
	"time"

	"github.com/sirupsen/logrus"

	"ridedispatch/internal/config"
)

// NewLogger returns a JSON logrus logger at the configured level.
// Unknown levels fall back to info.
func NewLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	return logger
}
