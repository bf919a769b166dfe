// Package logging configures the process logger.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to out at the given level.
func New(level logrus.Level, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
	return log
}
