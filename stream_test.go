package chimera

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	cryptoRand "crypto/rand"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamFixture struct {
	key    []byte
	iv     []byte
	plain  []byte
	cipher []byte
}

func newStreamFixture(t *testing.T, size int) *streamFixture {
	f := &streamFixture{
		key:   make([]byte, 32),
		iv:    make([]byte, aes.BlockSize),
		plain: make([]byte, size),
	}
	for _, b := range [][]byte{f.key, f.iv, f.plain} {
		_, err := cryptoRand.Read(b)
		require.NoError(t, err)
	}
	block, err := aes.NewCipher(f.key)
	require.NoError(t, err)
	f.cipher = make([]byte, size)
	cipher.NewCTR(block, f.iv).XORKeyStream(f.cipher, f.plain)
	return f
}

var streamProps = Properties{BufferSizeKey: "1000"}

func TestReader(t *testing.T) {
	assert := assert.New(t)
	f := newStreamFixture(t, 10000)
	r, err := NewReader(bytes.NewReader(f.cipher), streamProps, f.key, f.iv)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	// The buffer is floored to the block size.
	assert.Len(r.s.buffer.Bytes(), 992)

	plain, err := io.ReadAll(r)
	assert.NoError(err)
	assert.Equal(f.plain, plain)

	for _, offset := range []int64{0, 1, 15, 16, 17, 4095, 9999} {
		off, err := r.Seek(offset, io.SeekStart)
		assert.NoError(err)
		assert.Equal(offset, off)
		buf := make([]byte, 100)
		n, err := io.ReadFull(r, buf)
		if offset+100 > int64(len(f.plain)) {
			assert.ErrorIs(err, io.ErrUnexpectedEOF)
		} else {
			assert.NoError(err)
		}
		assert.Equal(f.plain[offset:offset+int64(n)], buf[:n])
	}
}

func TestReaderAt(t *testing.T) {
	assert := assert.New(t)
	f := newStreamFixture(t, 4096)
	r, err := NewReader(bytes.NewReader(f.cipher), nil, f.key, f.iv)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	buf := make([]byte, 333)
	for _, off := range []int64{0, 7, 16, 1000, 3763} {
		n, err := r.ReadAt(buf, off)
		assert.NoError(err)
		assert.Equal(f.plain[off:off+int64(n)], buf[:n])
	}

	// The offset of sequential reads is unaffected.
	head := make([]byte, 64)
	_, err = io.ReadFull(r, head)
	assert.NoError(err)
	assert.Equal(f.plain[:64], head)
}

func TestReaderStartsAtOffset(t *testing.T) {
	f := newStreamFixture(t, 2048)
	inner := bytes.NewReader(f.cipher)
	_, err := inner.Seek(100, io.SeekStart)
	require.NoError(t, err)
	r, err := NewReader(inner, nil, f.key, f.iv)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	plain, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, f.plain[100:], plain)
}

func TestWriter(t *testing.T) {
	assert := assert.New(t)
	f := newStreamFixture(t, 5000)
	fs := afero.NewMemMapFs()
	out, err := fs.Create("/cipher")
	require.NoError(t, err)
	w, err := NewWriter(out, streamProps, f.key, f.iv)
	require.NoError(t, err)
	for _, chunk := range [][]byte{
		f.plain[:1], f.plain[1:2000], f.plain[2000:],
	} {
		n, err := w.Write(chunk)
		assert.NoError(err)
		assert.Equal(len(chunk), n)
	}
	assert.NoError(w.Close())
	_, err = w.Write(f.plain)
	assert.Error(err)

	data, err := afero.ReadFile(fs, "/cipher")
	assert.NoError(err)
	assert.Equal(f.cipher, data)

	in, err := fs.Open("/cipher")
	require.NoError(t, err)
	r, err := NewReader(in, streamProps, f.key, f.iv)
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	assert.NoError(err)
	assert.Equal(f.plain, plain)
	assert.NoError(r.Close())
}

func TestWriterAt(t *testing.T) {
	f := newStreamFixture(t, 3000)
	var buf bytes.Buffer
	w, err := NewWriterAt(&buf, nil, f.key, f.iv, 1234)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()
	_, err = w.Write(f.plain[1234:])
	assert.NoError(t, err)
	assert.Equal(t, f.cipher[1234:], buf.Bytes())
}

func TestStreamRejectsConfiguration(t *testing.T) {
	assert := assert.New(t)
	key := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	r := bytes.NewReader(nil)

	_, err := NewReader(r, Properties{
		TransformationKey: "AES/CBC/NoPadding",
	}, key, iv)
	assert.ErrorIs(err, ErrUnsupportedMode)

	_, err = NewReader(r, Properties{BufferSizeKey: "256"}, key, iv)
	assert.ErrorIs(err, ErrInvalidArgument)

	_, err = NewReader(r, Properties{BufferSizeKey: "big"}, key, iv)
	assert.ErrorIs(err, ErrFormat)

	_, err = NewReader(r, nil, key, iv[:8])
	assert.ErrorIs(err, ErrInvalidArgument)

	_, err = NewWriter(io.Discard, Properties{
		TransformationKey: "AES/XTS/NoPadding",
	}, key, iv)
	var ioErr *IOError
	assert.ErrorAs(err, &ioErr)
	assert.ErrorIs(err, ErrUnsupportedTransformation)
}
