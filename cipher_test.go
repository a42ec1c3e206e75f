package chimera

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	cryptoRand "crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCipherClasses(t *testing.T) {
	key := make([]byte, 32)
	iv := make([]byte, aesBlockSize)
	plain := make([]byte, 4*aesBlockSize)
	_, err := cryptoRand.Read(key)
	require.NoError(t, err)
	_, err = cryptoRand.Read(plain)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	for _, class := range []string{OpensslCipherClass, JceCipherClass} {
		t.Run(class, func(t *testing.T) {
			assert := assert.New(t)

			c, err := NewCipher(Resolver{Props: Properties{
				CipherClassesKey:  class,
				TransformationKey: "AES/CBC/NoPadding",
			}})
			require.NoError(t, err)
			assert.Equal(AESCBCNoPadding, c.Transformation())
			assert.NoError(c.Init(EncryptMode, key, iv))
			encrypted := make([]byte, len(plain))
			assert.NoError(c.Update(encrypted, plain))
			expected := make([]byte, len(plain))
			cipher.NewCBCEncrypter(block, iv).CryptBlocks(expected, plain)
			assert.Equal(expected, encrypted)
			assert.ErrorIs(c.Update(encrypted[:3], plain[:3]),
				ErrInvalidArgument)

			assert.NoError(c.Init(DecryptMode, key, iv))
			decrypted := make([]byte, len(plain))
			assert.NoError(c.Update(decrypted, encrypted))
			assert.True(bytes.Equal(plain, decrypted))
		})
	}
}

func TestNewCipherFallback(t *testing.T) {
	assert := assert.New(t)
	c, err := NewCipher(Resolver{Props: Properties{
		CipherClassesKey: "org.example.Missing, " + JceCipherClass,
	}})
	require.NoError(t, err)
	assert.Equal(JceCipherClass, c.(*aesCipher).class)

	_, err = NewCipher(Resolver{Props: Properties{
		CipherClassesKey: "org.example.Missing",
	}})
	assert.Error(err)
}

func TestResolveClassChain(t *testing.T) {
	assert := assert.New(t)
	classes := "org.example.Missing," + OpensslCipherClass + ", " + JceCipherClass
	chain := resolveClassChain(classes)
	require.Len(t, chain, 2)
	assert.Equal(OpensslCipherClass, chain[0].name)
	assert.Equal(JceCipherClass, chain[1].name)

	// The chain of a seen list is taken from the cache.
	again := resolveClassChain(classes)
	require.Len(t, again, 2)
	assert.Same(&chain[0], &again[0])

	assert.Empty(resolveClassChain("org.example.Missing"))
}

func TestNewCipherUninitialized(t *testing.T) {
	c, err := NewCipher(Resolver{})
	require.NoError(t, err)
	assert.Error(t, c.Update(make([]byte, 16), make([]byte, 16)))
	assert.ErrorIs(t, c.Init(EncryptMode, make([]byte, 16), make([]byte, 8)),
		ErrInvalidArgument)
	assert.Error(t, c.Init(EncryptMode, make([]byte, 7), make([]byte, 16)))
}

func TestGetCipherInstance(t *testing.T) {
	assert := assert.New(t)
	c, err := GetCipherInstance(Properties{})
	if err != nil {
		// The process may have been configured otherwise.
		t.Skipf("system properties: %v", err)
	}
	assert.NotNil(c)

	_, err = GetCipherInstance(Properties{
		TransformationKey: "AES/CBC/PKCS5Padding",
	})
	var ioErr *IOError
	assert.True(errors.As(err, &ioErr))
	assert.ErrorIs(err, ErrUnsupportedTransformation)

	_, err = GetCipherInstance(Properties{
		TransformationKey: "Blowfish/CTR/NoPadding",
	})
	assert.True(errors.As(err, &ioErr))
	assert.ErrorIs(err, ErrUnsupportedTransformation)
}
