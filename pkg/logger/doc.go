// Package logger provides a thin factory around log/slog with functional
// options, helper attribute constructors, and transparent injection of
// context-scoped values (such as request IDs) into every record.
//
// Components receive a *slog.Logger explicitly; there is no package-level
// logging state beyond the optional SetAsDefault escape hatch.
package logger
