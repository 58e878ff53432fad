package brt

import "github.com/sirupsen/logrus"

// logrusLogger adapts *logrus.Entry to the Logger capability, the way
// cerc-io-ipld-eth-statedb's trie.Database logs through a bare
// "github.com/sirupsen/logrus" import rather than a bespoke logging
// interface.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps a *logrus.Logger for use as Config.Logger. Pass
// nil to use logrus.StandardLogger().
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusLogger{entry: logrus.NewEntry(l)}
}

func (l logrusLogger) WithField(key string, value any) Logger {
	return logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l logrusLogger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l logrusLogger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
