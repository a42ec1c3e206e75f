package chimera

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const (
	// SystemPropertiesFile is the name of the optional file
	// whose properties are loaded into the system properties.
	SystemPropertiesFile = "chimera.properties"

	// ConfPrefix is the namespace of every configuration key.
	// Only keys under it are taken from the properties file.
	ConfPrefix = "chimera."

	// confDirEnv names the directory searched first for the
	// properties file.
	confDirEnv = "CHIMERA_CONF_DIR"
)

// Store is the process wide store of system properties that
// overrides the compiled-in defaults.
type Store interface {
	Get(key string) (string, bool)

	// SetIfAbsent sets the value only when key has not been
	// set yet, reporting whether the value is taken.
	SetIfAbsent(key, value string) bool
}

// MapStore is an in-memory Store.
type MapStore struct {
	mtx sync.RWMutex
	m   map[string]string
}

// NewMapStore creates a store holding a copy of the values.
func NewMapStore(values map[string]string) *MapStore {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &MapStore{m: m}
}

func (s *MapStore) Get(key string) (string, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	value, ok := s.m[key]
	return value, ok
}

func (s *MapStore) SetIfAbsent(key, value string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.m == nil {
		s.m = make(map[string]string)
	}
	if _, ok := s.m[key]; ok {
		return false
	}
	s.m[key] = value
	return true
}

// Keys returns the sorted keys of the store.
func (s *MapStore) Keys() []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResourceLocator resolves a resource name against a list of
// directories of a file system, the first match wins.
type ResourceLocator struct {
	Fs   afero.Fs
	Dirs []string
}

// Open opens the named resource. The returned bool is false
// when the resource is in none of the directories.
func (l ResourceLocator) Open(name string) (afero.File, bool, error) {
	for _, dir := range l.Dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		f, err := l.Fs.Open(path)
		if err == nil {
			return f, true, nil
		}
		if !os.IsNotExist(err) {
			return nil, false, errors.Wrapf(err, "open %q", path)
		}
	}
	return nil, false, nil
}

// defaultLocator searches the configuration directory, the
// working directory, the directory of the executable and the
// system configuration directory in order.
func defaultLocator() ResourceLocator {
	dirs := []string{os.Getenv(confDirEnv)}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, "/etc/chimera")
	return ResourceLocator{Fs: afero.NewOsFs(), Dirs: dirs}
}

// envName maps the configuration key to the environment
// variable setting it explicitly, e.g. chimera.lib.path is
// set by CHIMERA_LIB_PATH.
func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(
		".", "_", "-", "_").Replace(key))
}

// LoadEnvironment copies the explicitly set environment
// variables of the known configuration keys into the store.
func LoadEnvironment(store Store, lookup func(string) (string, bool)) {
	for _, key := range configKeys {
		if value, ok := lookup(envName(key)); ok {
			store.SetIfAbsent(key, value)
		}
	}
}

// LoadSystemProperties loads the properties file found by the
// locator into the store, copying every key under ConfPrefix
// that has not been set in the store yet.
//
// A missing properties file is not an error.
func LoadSystemProperties(store Store, locator ResourceLocator) error {
	f, ok, err := locator.Open(SystemPropertiesFile)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer func() { _ = f.Close() }()
	data, err := afero.ReadAll(f)
	if err != nil {
		return errors.Wrapf(err, "read %q", f.Name())
	}

	// Java properties files are ISO-8859-1 and never expand
	// ${...} references.
	loader := &properties.Loader{
		Encoding:         properties.ISO_8859_1,
		DisableExpansion: true,
	}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return errors.Wrapf(err, "parse %q", f.Name())
	}
	for _, key := range props.Keys() {
		if !strings.HasPrefix(key, ConfPrefix) {
			continue
		}
		value, _ := props.Get(key)
		if store.SetIfAbsent(key, value) {
			log.Debugf("system property %s set from %s", key, f.Name())
		}
	}
	return nil
}

var (
	systemOnce  sync.Once
	systemStore *MapStore
)

// SystemProperties returns the process wide store.
//
// The store is populated on the first call from environment
// and then the properties file. Failing to load the file is
// logged and the store continues without its values.
func SystemProperties() Store {
	systemOnce.Do(func() {
		store := NewMapStore(nil)
		LoadEnvironment(store, os.LookupEnv)
		if err := LoadSystemProperties(store, defaultLocator()); err != nil {
			log.Warningf("could not load %q: %v",
				SystemPropertiesFile, err)
		}
		systemStore = store
	})
	return systemStore
}
