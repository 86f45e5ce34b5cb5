package eventsvc

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

// watermillLogger routes watermill's own logs to core.Logger. Debug and trace entries are dropped.
type watermillLogger struct {
	logger core.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*watermillLogger)(nil)

func newWatermillLogger(logger core.Logger) *watermillLogger {
	return &watermillLogger{logger: logger, fields: watermill.LogFields{}}
}

func (l *watermillLogger) args(fields watermill.LogFields) map[string]interface{} {
	all := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	return all
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error("watermill: "+msg, err, l.args(fields))
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info("watermill: "+msg, l.args(fields))
}

func (l *watermillLogger) Debug(string, watermill.LogFields) {}

func (l *watermillLogger) Trace(string, watermill.LogFields) {}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: l.logger, fields: l.fields.Add(fields)}
}
