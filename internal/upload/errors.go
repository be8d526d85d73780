package upload

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange = errors.New("file index out of range")
	ErrIsDirectory     = errors.New("is a directory")
)

func newErrIndexOutOfRange(index, length int) error {
	return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, length)
}
