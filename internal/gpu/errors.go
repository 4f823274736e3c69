package gpu

import "errors"

var (
	ErrOutOfMemory       = errors.New("gpu: out of memory")
	ErrInvalidBinding    = errors.New("gpu: invalid binding")
	ErrInvalidShape      = errors.New("gpu: invalid tensor shape")
	ErrNoProfile         = errors.New("gpu: no active profile")
	ErrUnknownBackend    = errors.New("gpu: unknown backend")
	ErrUnsupportedKernel = errors.New("gpu: kernel not supported by this backend")
	ErrServerClosed      = errors.New("gpu: server closed")
)
