package chimera

import (
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// session is the state shared by the crypto streams, being
// the resolved configuration, the positioned CTR stream and
// the I/O buffer.
type session struct {
	resolver Resolver
	key      []byte
	ctr      *ctrStream
	buffer   *DirectBuffer
}

func newSession(props PropertySource, key, iv []byte) (*session, error) {
	resolver := NewResolver(props)
	c, err := NewCipher(resolver)
	if err != nil {
		return nil, ioError("create cipher", err)
	}
	if err := CheckStreamCipher(c); err != nil {
		return nil, err
	}
	size, err := resolver.BufferSize()
	if err != nil {
		return nil, err
	}
	if size, err = CheckBufferSize(c, size); err != nil {
		return nil, err
	}
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	ctr, err := newCTRStream(c, keyCopy, iv)
	if err != nil {
		return nil, err
	}
	buffer, err := NewDirectBuffer(size)
	if err != nil {
		return nil, err
	}
	return &session{
		resolver: resolver,
		key:      keyCopy,
		ctr:      ctr,
		buffer:   buffer,
	}, nil
}

// fork creates a CTR stream independent of the session's.
func (s *session) fork() (*ctrStream, error) {
	c, err := NewCipher(s.resolver)
	if err != nil {
		return nil, ioError("create cipher", err)
	}
	return newCTRStream(c, s.key, s.ctr.iv)
}

func (s *session) close(inner interface{}) error {
	FreeDirectBuffer(s.buffer)
	if closer, ok := inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Reader decrypts the data read from a seekable stream of
// AES/CTR/NoPadding ciphertext.
type Reader struct {
	mtx   sync.Mutex
	inner io.ReadSeeker
	s     *session
}

// NewReader creates the reader of ciphertext r, encrypted with
// key and the IV at offset 0 of the stream.
func NewReader(
	r io.ReadSeeker, props PropertySource, key, iv []byte,
) (*Reader, error) {
	s, err := newSession(props, key, iv)
	if err != nil {
		return nil, err
	}
	offset, err := r.Seek(0, io.SeekCurrent)
	if err == nil && offset > 0 {
		err = s.ctr.Seek(uint64(offset))
	}
	if err != nil {
		FreeDirectBuffer(s.buffer)
		return nil, err
	}
	return &Reader{inner: r, s: s}, nil
}

func (r *Reader) Read(b []byte) (int, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	buf := r.s.buffer.Bytes()
	if buf == nil {
		return 0, errors.New("read on closed reader")
	}
	if len(b) < len(buf) {
		buf = buf[:len(b)]
	}
	defer runtime.KeepAlive(r.s.buffer)
	n, err := r.inner.Read(buf)
	if n > 0 {
		if cerr := r.s.ctr.XORKeyStream(b[:n], buf[:n]); cerr != nil {
			return 0, cerr
		}
	}
	return n, err
}

// ReadAt decrypts the data at off, without moving the offset
// of the reader. The underlying stream must be io.ReaderAt.
func (r *Reader) ReadAt(b []byte, off int64) (int, error) {
	readerAt, ok := r.inner.(io.ReaderAt)
	if !ok {
		return 0, errors.New("underlying stream is not io.ReaderAt")
	}
	if off < 0 {
		return 0, invalidArgument("negative offset %d", off)
	}
	n, err := readerAt.ReadAt(b, off)
	if n > 0 {
		ctr, cerr := r.s.fork()
		if cerr == nil {
			cerr = ctr.Seek(uint64(off))
		}
		if cerr == nil {
			cerr = ctr.XORKeyStream(b[:n], b[:n])
		}
		if cerr != nil {
			return 0, cerr
		}
	}
	return n, err
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	off, err := r.inner.Seek(offset, whence)
	if err != nil {
		return off, err
	}
	return off, r.s.ctr.Seek(uint64(off))
}

// Close releases the buffer and closes the underlying stream
// if it is an io.Closer.
func (r *Reader) Close() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.s.close(r.inner)
}

// Writer encrypts the data written into a stream with
// AES/CTR/NoPadding.
type Writer struct {
	mtx   sync.Mutex
	inner io.Writer
	s     *session
}

// NewWriter creates the writer encrypting into w, starting at
// offset 0 of the stream.
func NewWriter(
	w io.Writer, props PropertySource, key, iv []byte,
) (*Writer, error) {
	s, err := newSession(props, key, iv)
	if err != nil {
		return nil, err
	}
	return &Writer{inner: w, s: s}, nil
}

// NewWriterAt is NewWriter whose first byte written is at
// offset of the stream.
func NewWriterAt(
	w io.Writer, props PropertySource, key, iv []byte, offset uint64,
) (*Writer, error) {
	writer, err := NewWriter(w, props, key, iv)
	if err != nil {
		return nil, err
	}
	if err := writer.s.ctr.Seek(offset); err != nil {
		FreeDirectBuffer(writer.s.buffer)
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Write(b []byte) (int, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	buf := w.s.buffer.Bytes()
	if buf == nil {
		return 0, errors.New("write on closed writer")
	}
	defer runtime.KeepAlive(w.s.buffer)
	written := 0
	for len(b) > 0 {
		chunk := len(b)
		if chunk > len(buf) {
			chunk = len(buf)
		}
		if err := w.s.ctr.XORKeyStream(buf[:chunk], b[:chunk]); err != nil {
			return written, err
		}
		n, err := w.inner.Write(buf[:chunk])
		written += n
		if err != nil {
			return written, err
		}
		if n < chunk {
			return written, io.ErrShortWrite
		}
		b = b[chunk:]
	}
	return written, nil
}

// Close releases the buffer and closes the underlying stream
// if it is an io.Closer.
func (w *Writer) Close() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.s.close(w.inner)
}
