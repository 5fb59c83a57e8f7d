package core

// Logger is any leveled logging service.
// Error/Fatal args may carry an error, a map[string]interface{} of extra
// diagnostic context, or a logged-in user; implementations decide how to
// report each.
type Logger interface {
	Enable(enabled bool)
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
