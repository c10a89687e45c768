package model

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Environment variables consulted by NewLogger when the matching option is unset.
const (
	EnvLogLevel = "FEED_MINER_LOG_LEVEL"
	EnvJSONLogs = "FEED_MINER_JSON_LOGS"
)

// LogOptions configures the process logger.
type LogOptions struct {
	Level   string
	JSON    bool
	Verbose bool
	Output  io.Writer
}

// NewLogger builds a logrus logger writing to stderr unless Output is set.
// An unparseable level falls back to info.
func NewLogger(opts LogOptions) *logrus.Logger {
	logger := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	levelName := opts.Level
	if levelName == "" {
		levelName = os.Getenv(EnvLogLevel)
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(levelName))
	if err != nil {
		level = logrus.InfoLevel
	}
	if opts.Verbose && level < logrus.InfoLevel {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	jsonLogs := opts.JSON
	if !jsonLogs {
		jsonLogs, _ = strconv.ParseBool(os.Getenv(EnvJSONLogs))
	}
	if jsonLogs {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// FeedErrorFields returns the structured context of an error for logging.
// Plain errors yield only the error field.
func FeedErrorFields(err error) logrus.Fields {
	fields := logrus.Fields{"error": err.Error()}

	fe, ok := AsFeedError(err)
	if !ok {
		return fields
	}

	fields["error"] = fe.Message
	fields["error_id"] = fe.ID
	fields["error_type"] = string(fe.ErrorType)
	if fe.URL != "" {
		fields["url"] = fe.URL
	}
	if fe.Operation != "" {
		fields["operation"] = fe.Operation
	}
	if fe.Component != "" {
		fields["component"] = fe.Component
	}
	if fe.HTTPStatus != 0 {
		fields["http_status"] = fe.HTTPStatus
	}
	if fe.Attempt != 0 {
		fields["attempt"] = fe.Attempt
	}
	if fe.Cause != nil {
		fields["cause"] = fe.Cause.Error()
	}

	return fields
}

// LogFeedError logs err with its FeedError context at the given level.
func LogFeedError(logger logrus.FieldLogger, level logrus.Level, err error) {
	if err == nil {
		return
	}

	entry := logger.WithFields(FeedErrorFields(err))
	msg := "operation failed"
	if fe, ok := AsFeedError(err); ok && fe.Suggestion != "" {
		entry = entry.WithField("suggestion", fe.Suggestion)
	}

	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug(msg)
	case logrus.InfoLevel:
		entry.Info(msg)
	case logrus.WarnLevel:
		entry.Warn(msg)
	default:
		entry.Error(msg)
	}
}
