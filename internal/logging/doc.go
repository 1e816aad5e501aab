// Package logging provides structured logging for the WASP uploader.
//
// This package wraps a global zap logger and adds field helpers for the
// values the uploader traces: 16-bit register words, 32-bit addresses and
// hex dumps of packet payloads.
//
// # Log Levels
//
//   - Debug: every register access and every stage-2 frame, with hex dumps
//   - Info: phase transitions (header written, transfer done, device starting)
//   - Warn: recoverable oddities (rediscovery during a transfer, unsolicited
//     config requests)
//   - Error: the typed error that ended an upload
//
// # Configuration
//
// Logging is silent unless a level is given, either by the caller or through
// the WASP_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize(""); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// The protocol engines never touch the global logger directly; the CLI passes
// logging.GetLogger() to them with wasp.WithLogger.
//
// # Field Helpers
//
//	log.Debug("register write",
//	    zap.Stringer("reg", protocol.RegStatus),
//	    logging.Word("value", protocol.CmdSetData),
//	)
//
// # Output Format
//
// Logs are written to stderr in console format so they do not interleave
// with the progress display on stdout.
package logging
