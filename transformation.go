package chimera

import (
	"fmt"

	"github.com/pkg/errors"
)

// aesBlockSize is the algorithm block size of AES, which is
// fixed to 128 bits regardless of the key length.
const aesBlockSize = 16

// Transformation identifies the algorithm, mode and padding
// of a cipher.
type Transformation uint8

const (
	// AESCTRNoPadding is the only transformation usable for
	// seekable streams.
	AESCTRNoPadding Transformation = iota
	AESCBCNoPadding
	AESCBCPKCS5Padding
)

var transformationNames = []string{
	AESCTRNoPadding:    "AES/CTR/NoPadding",
	AESCBCNoPadding:    "AES/CBC/NoPadding",
	AESCBCPKCS5Padding: "AES/CBC/PKCS5Padding",
}

// Name returns the canonical name of the transformation.
func (t Transformation) Name() string {
	if int(t) < len(transformationNames) {
		return transformationNames[t]
	}
	return fmt.Sprintf("Transformation(%d)", uint8(t))
}

func (t Transformation) String() string {
	return t.Name()
}

// AlgorithmBlockSize returns the block size of the underlying
// block transform in bytes.
func (t Transformation) AlgorithmBlockSize() int {
	return aesBlockSize
}

// ParseTransformation converts the exact name of a
// transformation to its enumerated value.
func ParseTransformation(name string) (Transformation, error) {
	for i, n := range transformationNames {
		if n == name {
			return Transformation(i), nil
		}
	}
	return 0, errors.Wrapf(
		ErrUnsupportedTransformation, "%q", name)
}
