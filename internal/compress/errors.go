package compress

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBatch = errors.New("no files to compress")
	ErrService    = errors.New("compression service failed")
	ErrTimeout    = errors.New("compression request timed out")
)

// ServiceError reports any failed round trip: transport errors, non-2xx
// statuses and unusable response bodies. errors.Is(err, ErrService) holds
// for every ServiceError.
type ServiceError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("compression service responded with %d %s: %v", e.StatusCode, e.Reason, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("compression service responded with %d %s", e.StatusCode, e.Reason)
	case e.Err != nil:
		return "compression service: " + e.Err.Error()
	default:
		return ErrService.Error()
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == ErrService }
