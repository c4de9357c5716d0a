// Package logging provides structured logging and lifecycle status output
// for privatepub.
//
// Two writers live here:
//
//   - Logger wraps log/slog with JSON or text output, level filtering and
//     default service/version fields. It is used for every operational log line.
//   - StatusLogger prints the plain one-line broker lifecycle messages
//     ("Client 42 subscribes Channel: /chat!") gated by the log_state flag.
//
// # Configuration
//
//	production:
//	  log_state: false     # false prints status lines, true silences them
//	  logging:
//	    level: "info"      # debug, info, warn, error
//	    format: "json"     # json, text
//	    output: "stdout"   # stdout, stderr
//
// # Security
//
// Never log the secret token or service tokens. Use Redact:
//
//	logger.Info("secret loaded", "secret_token", logging.Redact(cfg.SecretToken))
package logging
