// Package logging is a thin layer over log/slog. It builds the handler
// from the config file (json or text, stdout or stderr, level filter)
// and stamps service and version attributes on every record. Components
// take child loggers via With:
//
//	log := logging.New(cfg.Logging, version)
//	cloudLog := log.With("component", "cloud")
//	cloudLog.Info("channel connected", "server", cfg.Cloud.Server)
//
// Never log credentials or tokens; log a short prefix if an identifier
// is needed.
package logging
