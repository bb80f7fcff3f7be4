package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Tests and packages used outside of main would otherwise hit a nil Log.
func init() {
	Init("development")
}

// Init configures the global logger. Production gets JSON output so the log
// drain can index fields; everything else gets readable text.
func Init(env string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	env = strings.ToLower(strings.TrimSpace(env))
	if env == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := logrus.ParseLevel(lvl); err == nil {
			logger.SetLevel(parsed)
		}
	}

	Log = logger.WithFields(logrus.Fields{
		"service": "reflect-backend",
		"env":     env,
	})
}
