// Package logging builds slog loggers with console and JSON handlers and
// provides attr helpers plus standardized field names used across components.
package logging
