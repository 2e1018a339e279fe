package telemetry

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// InitLogger configures the standard logrus logger.
// In stdio mode out must be stderr, stdout carries JSON-RPC.
func InitLogger(level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	logrus.SetLevel(lvl)
	logrus.SetOutput(out)

	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
