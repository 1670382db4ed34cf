// Package definition holds the default, swappable implementations that the
// rest of the protocol depends on only through interfaces.
package definition

import (
	"os"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
	"github.com/sirupsen/logrus"
)

// NewDefaultLogger builds the logger used when a peer does not supply its
// own. Fields carried on every entry (peer id) let a multi-peer demo's
// combined output stay attributable without per-callsite string munging.
func NewDefaultLogger(peerID int) *DefaultLogger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{
		entry: base.WithField("peer", peerID),
		debug: false,
	}
}

// DefaultLogger is the logger used if the caller does not provide its own.
// It satisfies types.Logger over a logrus.Entry.
type DefaultLogger struct {
	entry *logrus.Entry
	debug bool
}

func (l *DefaultLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *DefaultLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *DefaultLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *DefaultLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *DefaultLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

func (l *DefaultLogger) Fatal(v ...interface{})                 { l.entry.Fatal(v...) }
func (l *DefaultLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.entry.Logger.SetLevel(logrus.DebugLevel)
	} else {
		l.entry.Logger.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}

var _ types.Logger = (*DefaultLogger)(nil)
