package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a finished HTTP request. Successful requests are debug
// noise; client and server errors are raised to warn.
func LogRequest(log Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":   method,
		"url":      url,
		"status":   statusCode,
		"duration": duration,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		log.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		log.WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		log.WarnWithFields("HTTP request server error", fields)
	default:
		log.DebugWithFields("HTTP request completed", fields)
	}
}

// LogImage logs the outcome of one image download
func LogImage(log Logger, name, link string, size int64, err error) {
	l := log.WithFields(map[string]interface{}{
		"name": name,
		"link": link,
	})

	switch {
	case err != nil:
		l.WithError(err).Warn("Image download failed")
	case size < 0:
		l.Debug("Image already on disk, skipped")
	default:
		l.DebugWithFields("Image saved", map[string]interface{}{"bytes": size})
	}
}

// LogRunProgress logs how far a run is towards its quota
func LogRunProgress(log Logger, keyword string, round, downloaded, wanted int) {
	percentage := 0.0
	if wanted > 0 {
		percentage = float64(downloaded) / float64(wanted) * 100
	}

	log.WithFields(map[string]interface{}{
		"keyword":    keyword,
		"round":      round,
		"downloaded": downloaded,
		"wanted":     wanted,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Download progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, config map[string]interface{}) {
	l := log.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(log Logger, component string, reason string) {
	log.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

var nopZerolog = zerolog.Nop()

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return &nopZerolog }
