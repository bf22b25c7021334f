// Package logger provides structured logging for the pipeline scheduler
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers. Run and task ids travel on the context and
// are attached by WithContext.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("executor")
//	log.Info("task finished", logger.Fields(logger.FieldTaskID, id, logger.FieldState, "SUCCESS"))
package logger
