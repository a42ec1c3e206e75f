//go:build !unix

package chimera

func allocDirect(size int) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func freeDirect([]byte) error {
	return nil
}
