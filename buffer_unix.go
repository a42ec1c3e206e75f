//go:build unix

package chimera

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func allocDirect(size int) ([]byte, bool, error) {
	b, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, false, errors.Wrap(err, "mmap direct buffer")
	}
	return b, true, nil
}

func freeDirect(b []byte) error {
	return errors.Wrap(unix.Munmap(b), "munmap direct buffer")
}
