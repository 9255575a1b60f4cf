package crypto

import (
	"github.com/sirupsen/logrus"
)

// LoggerHelper is a logrus entry pre-tagged with the crypto package and the
// calling function. Each With* call returns a new helper, so a logger held
// across branches never leaks fields from one branch into another.
type LoggerHelper struct {
	entry *logrus.Entry
}

// NewLogger returns a helper tagged with function and package fields.
func NewLogger(function string) *LoggerHelper {
	return &LoggerHelper{entry: logrus.WithFields(logrus.Fields{
		"function": function,
		"package":  "crypto",
	})}
}

func (l *LoggerHelper) WithField(key string, value interface{}) *LoggerHelper {
	return &LoggerHelper{entry: l.entry.WithField(key, value)}
}

func (l *LoggerHelper) WithFields(fields logrus.Fields) *LoggerHelper {
	return &LoggerHelper{entry: l.entry.WithFields(fields)}
}

// WithError records err as a string together with a coarse error class and
// the step that failed.
func (l *LoggerHelper) WithError(err error, errorType, operation string) *LoggerHelper {
	return l.WithFields(logrus.Fields{
		"error":      err.Error(),
		"error_type": errorType,
		"operation":  operation,
	})
}

func (l *LoggerHelper) Debug(message string) { l.entry.Debug(message) }
func (l *LoggerHelper) Info(message string)  { l.entry.Info(message) }
func (l *LoggerHelper) Warn(message string)  { l.entry.Warn(message) }
func (l *LoggerHelper) Error(message string) { l.entry.Error(message) }

// KeyFields renders a public key for logging as a short fingerprint plus its size.
// Secret material must never be passed here.
func KeyFields(publicKey []byte, name string) logrus.Fields {
	return logrus.Fields{
		name:           ShortFingerprint(publicKey),
		name + "_size": len(publicKey),
	}
}

// OperationFields tags a log line with an operation and its outcome, merged
// with any extra field sets.
func OperationFields(operation, status string, extra ...logrus.Fields) logrus.Fields {
	fields := logrus.Fields{"operation": operation, "status": status}
	for _, set := range extra {
		for k, v := range set {
			fields[k] = v
		}
	}
	return fields
}
