package chimera

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// BufferSizeKey is the size of the stream buffer in bytes.
	BufferSizeKey     = ConfPrefix + "crypto.stream.buffer.size"
	BufferSizeDefault = 8192

	// CipherClassesKey is the comma separated list of cipher
	// implementations to try in order.
	CipherClassesKey     = ConfPrefix + "crypto.cipher.classes"
	CipherClassesDefault = OpensslCipherClass + "," + JceCipherClass

	// TransformationKey is the transformation of the cipher.
	TransformationKey     = ConfPrefix + "crypto.cipher.transformation"
	TransformationDefault = "AES/CTR/NoPadding"

	// JCEProviderKey is the security provider of the cipher,
	// the platform default is used when unset.
	JCEProviderKey = ConfPrefix + "crypto.jce.provider"

	// RandomDevicePathKey is the entropy device to read from.
	RandomDevicePathKey     = ConfPrefix + "random.device.file.path"
	RandomDevicePathDefault = "/dev/urandom"

	// LibPathKey and LibNameKey locate the native library,
	// standard locations are searched when unset.
	LibPathKey = ConfPrefix + "lib.path"
	LibNameKey = ConfPrefix + "lib.name"

	// TempDirKey is the directory for temporary files.
	TempDirKey = ConfPrefix + "tempdir"
)

var configKeys = []string{
	BufferSizeKey,
	CipherClassesKey,
	TransformationKey,
	JCEProviderKey,
	RandomDevicePathKey,
	LibPathKey,
	LibNameKey,
	TempDirKey,
}

// PropertySource is a read-only set of properties. It is
// satisfied by *properties.Properties.
type PropertySource interface {
	Get(key string) (string, bool)
}

// Properties is a PropertySource backed by a plain map.
type Properties map[string]string

func (p Properties) Get(key string) (string, bool) {
	value, ok := p[key]
	return value, ok
}

// Resolver looks up the settings of the cipher, taking the
// explicit properties first, then the system properties and
// finally the compiled-in defaults. Either source may be nil.
type Resolver struct {
	Props  PropertySource
	System Store
}

// NewResolver creates the resolver of props against the
// process wide system properties.
func NewResolver(props PropertySource) Resolver {
	return Resolver{Props: props, System: SystemProperties()}
}

func (r Resolver) lookup(key string, skipEmpty bool) (string, bool) {
	if r.Props != nil {
		if value, ok := r.Props.Get(key); ok && !(skipEmpty && value == "") {
			return value, true
		}
	}
	if r.System != nil {
		if value, ok := r.System.Get(key); ok && !(skipEmpty && value == "") {
			return value, true
		}
	}
	return "", false
}

func (r Resolver) get(key, defaultValue string) string {
	if value, ok := r.lookup(key, false); ok {
		return value
	}
	return defaultValue
}

// BufferSize returns the stream buffer size. Empty values
// are treated as unset.
func (r Resolver) BufferSize() (int, error) {
	value, ok := r.lookup(BufferSizeKey, true)
	if !ok {
		return BufferSizeDefault, nil
	}
	size, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(ErrFormat, "%s=%q", BufferSizeKey, value)
	}
	return size, nil
}

// CipherClasses returns the raw cipher class list.
func (r Resolver) CipherClasses() string {
	return r.get(CipherClassesKey, CipherClassesDefault)
}

// CipherClassList returns the cipher class list split and
// trimmed, with empty entries dropped.
func (r Resolver) CipherClassList() []string {
	return splitClasses(r.CipherClasses())
}

func splitClasses(classes string) []string {
	var result []string
	for _, class := range strings.Split(classes, ",") {
		if class = strings.TrimSpace(class); class != "" {
			result = append(result, class)
		}
	}
	return result
}

// Transformation returns the configured transformation.
func (r Resolver) Transformation() (Transformation, error) {
	return ParseTransformation(r.get(TransformationKey, TransformationDefault))
}

// JCEProvider returns the security provider, if any.
func (r Resolver) JCEProvider() (string, bool) {
	return r.lookup(JCEProviderKey, false)
}

// RandomDevicePath returns the path of the entropy device.
func (r Resolver) RandomDevicePath() string {
	return r.get(RandomDevicePathKey, RandomDevicePathDefault)
}

// LibPath returns the directory of the native library, if any.
func (r Resolver) LibPath() (string, bool) {
	return r.lookup(LibPathKey, false)
}

// LibName returns the file name of the native library, if any.
func (r Resolver) LibName() (string, bool) {
	return r.lookup(LibNameKey, false)
}

// TempDir returns the directory for temporary files, which
// falls back to the temporary directory of the platform.
func (r Resolver) TempDir() string {
	return r.get(TempDirKey, os.TempDir())
}

// GetBufferSize resolves the buffer size of props against
// the system properties.
func GetBufferSize(props PropertySource) (int, error) {
	return NewResolver(props).BufferSize()
}

// GetCipherTransformation resolves the transformation of
// props against the system properties.
func GetCipherTransformation(props PropertySource) (Transformation, error) {
	return NewResolver(props).Transformation()
}

// GetRandomDevicePath resolves the entropy device of props
// against the system properties.
func GetRandomDevicePath(props PropertySource) string {
	return NewResolver(props).RandomDevicePath()
}
