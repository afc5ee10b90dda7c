package pe

import "github.com/pkg/errors"

var (
	ErrInvalidPESize = errors.New("not a PE file, smaller than tiny PE")
)

var (
	ErrOutsideBoundary = errors.New("reading data outside boundary")
)
