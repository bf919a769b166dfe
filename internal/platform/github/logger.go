package github

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// retryLogger adapts logrus to retryablehttp.LeveledLogger.
type retryLogger struct {
	log *logrus.Entry
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.with(kv).Error(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.with(kv).Warn(msg) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.with(kv).Debug(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.with(kv).Trace(msg) }

func (l retryLogger) with(kv []interface{}) *logrus.Entry {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.log.WithFields(fields)
}
