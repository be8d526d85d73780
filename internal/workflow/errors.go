package workflow

import (
	"errors"

	"examcompress/internal/compress"
)

var (
	ErrUnknownExam      = errors.New("unknown exam")
	ErrNoExam           = errors.New("no exam selected")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrEmptyBatch       = compress.ErrEmptyBatch
)
