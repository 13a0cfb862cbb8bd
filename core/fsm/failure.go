package fsm

import "fmt"

// Failure is a generation failure reported back to the user verbatim.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Fail wraps msg as a Failure.
func Fail(msg string) error {
	return &Failure{Message: msg}
}

// Failf formats a Failure message.
func Failf(format string, args ...any) error {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}
