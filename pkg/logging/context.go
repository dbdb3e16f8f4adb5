package logging

import "log/slog"

// ForComponent returns a logger tagged with the originating component, e.g.
// "PageStore" or "LockManager".
func ForComponent(name string) *slog.Logger {
	return GetLogger().With("component", name)
}
