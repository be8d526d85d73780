package exam

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID     = errors.New("duplicate exam id")
	ErrUnknownFallback = errors.New("fallback exam is not in catalog")
	ErrInvalidCatalog  = errors.New("invalid exam catalog")
)

func newErrDuplicateID(id string) error { return fmt.Errorf("%w: %q", ErrDuplicateID, id) }

func newErrUnknownFallback(id string) error { return fmt.Errorf("%w: %q", ErrUnknownFallback, id) }
