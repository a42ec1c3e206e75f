// Package chimera implements the support layer of a seekable
// AES/CTR/NoPadding stream cipher.
//
// Encryption and decryption of a stream do not always start
// from its beginning. A worker may only process a split of a
// large file, so the IV for the first block it touches must be
// computed from the initial IV and the block counter derived
// from the stream offset. Thanks to the CTR mode, this is just
// a big-endian addition over the whole IV.
//
// Around the IV calculation the package offers the resolution
// of configuration values (explicit properties, the process
// wide system properties and the compiled-in defaults), the
// guards that reject cipher modes and buffer sizes unsuitable
// for streaming, and the release of natively backed buffers.
package chimera

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("chimera")

var (
	// ErrInvalidArgument is returned when a caller violates the
	// precondition of an operation, e.g. an IV of wrong length
	// or a buffer size below the minimum.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFormat is returned when a numeric setting is not a
	// valid number.
	ErrFormat = errors.New("malformed setting")

	// ErrUnsupportedTransformation is returned for transformation
	// names outside of the known set.
	ErrUnsupportedTransformation = errors.New("unsupported transformation")

	// ErrUnsupportedMode is returned when a cipher other than
	// AES/CTR/NoPadding is handed to a stream.
	ErrUnsupportedMode = errors.New("AES/CTR/NoPadding is required")
)

// invalidArgument annotates ErrInvalidArgument with the reason.
func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// IOError is the single error channel for callers that only
// handle I/O style failures, wrapping the construction or
// security failure underneath.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ioError constructs the IOError, leaving nil untouched.
func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
