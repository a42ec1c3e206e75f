package chimera

import (
	"github.com/pkg/errors"
)

// MinBufferSize is the smallest stream buffer accepted.
const MinBufferSize = 512

// CheckStreamCipher rejects every cipher whose transformation
// is not AES/CTR/NoPadding, since no other mode could seek.
func CheckStreamCipher(c Cipher) error {
	if t := c.Transformation(); t != AESCTRNoPadding {
		return errors.Wrapf(ErrUnsupportedMode, "got %s", t)
	}
	return nil
}

// CheckBufferSize checks the requested buffer size and floors
// it to a multiple of the algorithm block size, so that no
// cipher block is ever split between two buffer fills.
func CheckBufferSize(c Cipher, size int) (int, error) {
	if size < MinBufferSize {
		return 0, invalidArgument(
			"minimum value of buffer size is %d, got %d",
			MinBufferSize, size)
	}
	return size - size%c.Transformation().AlgorithmBlockSize(), nil
}
