package chimera

// CalculateIV calculates the IV of the block at counter, given
// the IV that the stream was established with at offset 0.
//
// The initial IV is interpreted as a big-endian integer and
// the counter is added to it, wrapping around at the width of
// the IV. The counter only affects the lowest 8 bytes, but the
// carry is propagated all the way to the highest byte, so that
// the result is the IV that the CTR mode would have reached
// after processing every block before counter.
//
// Both initIV and iv must be exactly one AES block long. The
// iv may alias initIV.
func CalculateIV(initIV []byte, counter uint64, iv []byte) error {
	if len(initIV) != aesBlockSize {
		return invalidArgument(
			"initial IV must be %d bytes, got %d",
			aesBlockSize, len(initIV))
	}
	if len(iv) != aesBlockSize {
		return invalidArgument(
			"IV must be %d bytes, got %d", aesBlockSize, len(iv))
	}
	sum := uint(0)
	for i := len(iv) - 1; i >= 0; i-- {
		// (sum >> 8) is the carry of the previous byte.
		sum = uint(initIV[i]) + (sum >> 8)
		if j := len(iv) - 1 - i; j < 8 {
			sum += uint(counter & 0x0ff)
			counter >>= 8
		}
		iv[i] = byte(sum)
	}
	return nil
}

// ctrStream is a CTR stream over a Cipher that supports
// random access.
//
// The cipher keeps the encryption context internally while
// we go forward. Seeking reinitializes it at the IV of the
// target block and discards the keystream before the target
// offset inside that block.
type ctrStream struct {
	c      Cipher
	key    []byte
	iv     []byte
	offset uint64
}

func newCTRStream(c Cipher, key, iv []byte) (*ctrStream, error) {
	if err := CheckStreamCipher(c); err != nil {
		return nil, err
	}
	if len(iv) != c.Transformation().AlgorithmBlockSize() {
		return nil, invalidArgument(
			"IV must be %d bytes, got %d",
			c.Transformation().AlgorithmBlockSize(), len(iv))
	}
	initIV := make([]byte, len(iv))
	copy(initIV, iv)
	if err := c.Init(EncryptMode, key, initIV); err != nil {
		return nil, err
	}
	return &ctrStream{c: c, key: key, iv: initIV}, nil
}

func (ctr *ctrStream) XORKeyStream(dst, src []byte) error {
	if err := ctr.c.Update(dst, src); err != nil {
		return err
	}
	ctr.offset += uint64(len(src))
	return nil
}

func (ctr *ctrStream) Tell() uint64 {
	return ctr.offset
}

func (ctr *ctrStream) Seek(offset uint64) error {
	if offset == ctr.offset {
		return nil
	}
	blockSize := uint64(len(ctr.iv))
	var newIV, padding [aesBlockSize]byte
	if err := CalculateIV(ctr.iv, offset/blockSize, newIV[:]); err != nil {
		return err
	}
	if err := ctr.c.Init(EncryptMode, ctr.key, newIV[:]); err != nil {
		return err
	}
	skip := padding[:offset%blockSize]
	if err := ctr.c.Update(skip, skip); err != nil {
		return err
	}
	ctr.offset = offset
	return nil
}
