// Package logger provides structured logging for augmentkit
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("compose")
//	log.Info("pipeline built", logger.Fields("pipeline", "train", "transforms", 12))
package logger
