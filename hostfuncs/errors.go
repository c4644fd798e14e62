package hostfuncs

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned by RateLimitMiddleware when a call is rejected.
var ErrRateLimited = errors.New("extension call rate limit exceeded")

// PanicError is the error a recovered handler panic turns into.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	switch v := e.Value.(type) {
	case error:
		return "panic: " + v.Error()
	case string:
		return "panic: " + v
	default:
		return fmt.Sprintf("panic: %v", v)
	}
}

// Unwrap returns the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
