package application

import "log/slog"

// ResolveLogger returns slog.Default when logger is nil.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// ModuleName is the value of the "module" log attribute for this context.
const ModuleName = "elections/voting-service"
