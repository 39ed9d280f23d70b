// Package logger writes structured JSON logs, split by severity into rotated
// files so conversion traffic, failures and debug chatter can be tailed
// independently.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. The helpers below tolerate a nil
// logger, so code under test can log freely without initialization.
var Logger *logrus.Logger

// InitLogger builds the global logger. An unparseable level name falls back
// to info rather than failing startup.
func InitLogger(logLevel string) error {
	Logger = logrus.New()

	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// Failures rotate separately from regular traffic, so a busy day of
	// conversions cannot push error records out of retention.
	Logger.AddHook(&splitHook{
		errors:   rotatedFile(filepath.Join(logDir, "error.log")),
		activity: rotatedFile(filepath.Join(logDir, "converter.log")),
		debug:    rotatedFile(filepath.Join(logDir, "debug.log")),
	})

	// Everything also lands on stdout for development and container logs.
	Logger.SetOutput(os.Stdout)

	return nil
}

func rotatedFile(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

// splitHook copies each entry into the file for its severity band.
type splitHook struct {
	errors   io.Writer
	activity io.Writer
	debug    io.Writer
}

func (h *splitHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	_, err = h.writerFor(entry.Level).Write([]byte(line))
	return err
}

func (h *splitHook) writerFor(level logrus.Level) io.Writer {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return h.errors
	case logrus.DebugLevel, logrus.TraceLevel:
		return h.debug
	default:
		return h.activity
	}
}

func (h *splitHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Error logs msg with structured fields at error level.
func Error(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Error(msg)
	}
}

func Info(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Info(msg)
	}
}

func Debug(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Debug(msg)
	}
}

func Warn(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Warn(msg)
	}
}

// Field-free variants for one-off lines.
func ErrorMsg(msg string) { Error(msg, nil) }

func InfoMsg(msg string) { Info(msg, nil) }

func DebugMsg(msg string) { Debug(msg, nil) }

func WarnMsg(msg string) { Warn(msg, nil) }
