package config

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	MinPort     = 1024
	MaxPort     = 65535
	DefaultPort = "8080"
)

var (
	ErrInvalidFormat = errors.New("not a valid port number")
	ErrOutOfRange    = fmt.Errorf("not in range %d-%d", MinPort, MaxPort)
)

// PortError reports a --port value that failed validation.
type PortError struct {
	Value string
	Err   error
}

func (e *PortError) Error() string {
	if errors.Is(e.Err, ErrInvalidFormat) {
		return fmt.Sprintf("`%s` is %v, expected %d-%d", e.Value, e.Err, MinPort, MaxPort)
	}
	return fmt.Sprintf("port %s %v", e.Value, e.Err)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

// ParsePort parses s as an unsigned decimal port number in [MinPort, MaxPort].
func ParsePort(s string) (int, error) {
	port, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &PortError{Value: s, Err: ErrOutOfRange}
		}
		return 0, &PortError{Value: s, Err: ErrInvalidFormat}
	}
	if port < MinPort || port > MaxPort {
		return 0, &PortError{Value: s, Err: ErrOutOfRange}
	}
	return int(port), nil
}
