// Package logging wires log/slog with the handlers and attribute helpers
// shared by the dialbridge daemon and CLI. Output defaults to a concise
// console format; a JSON handler is available for machine-consumed logs.
package logging
