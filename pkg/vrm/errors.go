package vrm

import (
	"errors"
	"fmt"
)

// Load errors. The typed errors below match these with errors.Is.
var (
	ErrUnsupportedVersion   = errors.New("unsupported version")
	ErrUnsupportedChunkType = errors.New("unsupported chunk type")
	ErrKeyNotFound          = errors.New("key not found")
	ErrDataInconsistent     = errors.New("data inconsistent")
	ErrThumbnailNotFound    = errors.New("thumbnail not found")
)

// VersionError reports a container whose magic or version field is not supported.
type VersionError struct {
	Raw uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%v: %#08x", ErrUnsupportedVersion, e.Raw)
}

func (e *VersionError) Is(target error) bool { return target == ErrUnsupportedVersion }

// ChunkTypeError reports a chunk whose type tag is not the expected one.
type ChunkTypeError struct {
	Raw uint32
}

func (e *ChunkTypeError) Error() string {
	return fmt.Sprintf("%v: %#08x", ErrUnsupportedChunkType, e.Raw)
}

func (e *ChunkTypeError) Is(target error) bool { return target == ErrUnsupportedChunkType }

// KeyNotFoundError names a required document key that is missing.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("%v: %q", ErrKeyNotFound, e.Key)
}

func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// DataInconsistentError reports truncated input or a document that does not
// decode into the expected shape.
type DataInconsistentError struct {
	Detail string
	Err    error
}

func (e *DataInconsistentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrDataInconsistent, e.Detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrDataInconsistent, e.Detail)
}

func (e *DataInconsistentError) Is(target error) bool { return target == ErrDataInconsistent }

func (e *DataInconsistentError) Unwrap() error { return e.Err }

func keyNotFound(key string) error {
	return &KeyNotFoundError{Key: key}
}

func inconsistent(err error, format string, args ...any) error {
	return &DataInconsistentError{Detail: fmt.Sprintf(format, args...), Err: err}
}
