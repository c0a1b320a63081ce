package backend

import (
	"errors"
	"fmt"
)

var ErrOrderNotFound = errors.New("order not found")

// NetworkError is returned for every failed backend call: transport failures,
// non-2xx answers, undecodable bodies and calls rejected by the circuit breaker.
type NetworkError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
