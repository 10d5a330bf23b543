// Package logger provides a structured logging facility based on Zap.
//
// The logger is constructed once by the command dispatcher and handed to
// every component at construction time; there is no ambient global logger.
// All log output goes to stderr so that formatted command output on stdout
// can be piped or redirected safely.
//
// # Verbosity
//
// FromVerbosity translates the CLI's -q/-v flags into a Config:
//   - -q  : silent (a no-op logger)
//   - -v  : warnings only
//   - default / -vv : info
//   - -vvv : debug (development encoder with timestamps)
//
// # Usage
//
//	log, _ := logger.New(logger.FromVerbosity(false, 0))
//	log.Info("resolved keys", zap.Int("count", n))
package logger
