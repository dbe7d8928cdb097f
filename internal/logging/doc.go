// Package logging builds the slog loggers used across shortcast and
// defines the standard structured field vocabulary.
package logging
