// Package logger provides structured logging on top of zerolog.
//
// Loggers are scoped per component and take fields as maps:
//
//	log := logger.NewDefault("scribe").WithComponent("recording")
//	log.Info("chunk recorded", logger.Fields(logger.FieldSessionID, id, logger.FieldLocator, loc))
package logger
