package chimera

import (
	"crypto/aes"
	"crypto/cipher"
	"sync"

	"github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"gitlab.com/yawning/bsaes.git"
)

// Mode is the direction a cipher is initialized for.
type Mode uint8

const (
	EncryptMode Mode = iota
	DecryptMode
)

// Cipher is a configured cipher instance.
//
// Streams only inspect its transformation, from which the
// algorithm block size is also derived.
type Cipher interface {
	Transformation() Transformation

	// Init (re)initializes the cipher with key and iv.
	Init(mode Mode, key, iv []byte) error

	// Update transforms src into dst, which must be at least
	// as long as src.
	Update(dst, src []byte) error
}

const (
	// OpensslCipherClass is the accelerated AES implementation.
	OpensslCipherClass = "com.intel.chimera.crypto.OpensslCipher"

	// JceCipherClass is the constant time pure software AES
	// implementation, serving as the fallback.
	JceCipherClass = "com.intel.chimera.crypto.JceCipher"
)

// newBlockFunc creates the AES block transform of a key.
type newBlockFunc func(key []byte) (cipher.Block, error)

var cipherClasses = map[string]newBlockFunc{
	OpensslCipherClass: aes.NewCipher,
	JceCipherClass:     bsaes.NewCipher,
}

// aesCipher implements Cipher upon a block transform, for the
// CTR and the CBC mode without padding.
type aesCipher struct {
	class          string
	transformation Transformation
	newBlock       newBlockFunc
	ctr            cipher.Stream
	cbc            cipher.BlockMode
}

func newAESCipher(
	class string, newBlock newBlockFunc, t Transformation,
) (*aesCipher, error) {
	switch t {
	case AESCTRNoPadding, AESCBCNoPadding:
	default:
		return nil, errors.Wrapf(ErrUnsupportedTransformation,
			"%s does not support %s", class, t)
	}
	return &aesCipher{
		class:          class,
		transformation: t,
		newBlock:       newBlock,
	}, nil
}

func (c *aesCipher) Transformation() Transformation {
	return c.transformation
}

func (c *aesCipher) Init(mode Mode, key, iv []byte) error {
	if len(iv) != aesBlockSize {
		return invalidArgument(
			"IV must be %d bytes, got %d", aesBlockSize, len(iv))
	}
	block, err := c.newBlock(key)
	if err != nil {
		return errors.Wrapf(err, "%s: init", c.class)
	}
	c.ctr, c.cbc = nil, nil
	switch {
	case c.transformation == AESCTRNoPadding:
		c.ctr = cipher.NewCTR(block, iv)
	case mode == EncryptMode:
		c.cbc = cipher.NewCBCEncrypter(block, iv)
	default:
		c.cbc = cipher.NewCBCDecrypter(block, iv)
	}
	return nil
}

func (c *aesCipher) Update(dst, src []byte) error {
	if len(dst) < len(src) {
		return invalidArgument("output buffer too small")
	}
	switch {
	case c.ctr != nil:
		c.ctr.XORKeyStream(dst, src)
	case c.cbc != nil:
		if len(src)%aesBlockSize != 0 {
			return invalidArgument(
				"input is not a multiple of block size")
		}
		c.cbc.CryptBlocks(dst, src)
	default:
		return errors.Errorf("%s: cipher not initialized", c.class)
	}
	return nil
}

// classChainCacheSize bounds the number of distinct class
// lists whose implementation chain is remembered.
const classChainCacheSize = 64

// cipherClass is an implementation picked from a class list.
type cipherClass struct {
	name     string
	newBlock newBlockFunc
}

var (
	classChainOnce  sync.Once
	classChainCache *lru.TwoQueueCache
)

// resolveClassChain maps the class list to the chain of known
// implementations, in order. The chain of recently seen lists
// is remembered and shared, so callers must not modify it.
func resolveClassChain(classes string) []cipherClass {
	classChainOnce.Do(func() {
		// Only fails on a non-positive size.
		classChainCache, _ = lru.New2Q(classChainCacheSize)
	})
	if cached, ok := classChainCache.Get(classes); ok {
		return cached.([]cipherClass)
	}
	var chain []cipherClass
	for _, name := range splitClasses(classes) {
		newBlock, ok := cipherClasses[name]
		if !ok {
			log.Debugf("skip unknown cipher class %q", name)
			continue
		}
		chain = append(chain, cipherClass{name: name, newBlock: newBlock})
	}
	classChainCache.Add(classes, chain)
	return chain
}

// NewCipher creates the cipher described by the resolver,
// trying each implementation of the class list in order.
func NewCipher(r Resolver) (Cipher, error) {
	t, err := r.Transformation()
	if err != nil {
		return nil, err
	}
	if provider, ok := r.JCEProvider(); ok && provider != "" {
		log.Debugf("security provider %q has no effect", provider)
	}
	var lastErr error
	for _, class := range resolveClassChain(r.CipherClasses()) {
		c, err := newAESCipher(class.name, class.newBlock, t)
		if err != nil {
			lastErr = err
			continue
		}
		return c, nil
	}
	if lastErr == nil {
		return nil, errors.Errorf(
			"no cipher class usable in %q", r.CipherClasses())
	}
	return nil, errors.Wrapf(lastErr, "create %s cipher", t)
}

// GetCipherInstance creates the cipher of props, reporting
// every failure as an IOError.
func GetCipherInstance(props PropertySource) (Cipher, error) {
	c, err := NewCipher(NewResolver(props))
	if err != nil {
		return nil, ioError("get cipher instance", err)
	}
	return c, nil
}
