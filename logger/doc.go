// Package logger provides structured logging for graceful applications
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("shutdown")
//	log.Info("[SHUTDOWN] Exiting", logger.Fields("exit_code", 0))
package logger
