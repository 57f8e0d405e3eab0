// Package logger provides structured logging on top of zerolog.
//
// Loggers are component scoped and accept plain field maps, so callers
// never import zerolog directly:
//
//	log := logger.Get("speaker")
//	log.Info("speakers detected", logger.Fields(logger.FieldSpeakerCount, 3))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
package logger
