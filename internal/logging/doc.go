// Package logging provides a zap-based logger for the pvdash project.
//
// The dashboard draws on the terminal for its entire run, so log output
// always goes to a file (pvdash.log by default, PVDASH_LOG_FILE to
// override) and never to stdout or stderr. Verbosity is controlled by the
// PVDASH_LOG_LEVEL environment variable; when it is unset the logger is a
// no-op so an interactive session produces no files at all.
package logging
