package types

// Logger is the logging capability every layer of the protocol depends on:
// leveled methods plus a runtime debug toggle, so call sites never need to
// know which concrete logger backs the interface.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	// ToggleDebug flips whether Debug/Debugf are emitted and returns the
	// resulting state.
	ToggleDebug(value bool) bool
}
