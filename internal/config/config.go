// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	// FileName is the project configuration file name.
	FileName = "buildenv.cfg"

	// ProfileLocal is the section read on developer machines.
	ProfileLocal = "local"
	// ProfileCI is the section read first when running under CI.
	ProfileCI = "ci"
	// ProfileDefault is the INI default section, read last.
	ProfileDefault = "default"
)

//go:embed schema.cue
var configSchema string

// ErrInvalidConfig is returned when the configuration file cannot be decoded
// or fails schema validation.
var ErrInvalidConfig = errors.New("invalid configuration file")

type (
	// Store is the lazily loaded project configuration.
	// It is safe for concurrent use.
	Store struct {
		path      string
		ci        bool
		lookupEnv func(string) (string, bool)
		load      func() (*viper.Viper, error)
	}

	// Option configures a Store.
	Option func(*Store)

	// InvalidConfigError reports a configuration file that failed to load.
	InvalidConfigError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns ErrInvalidConfig.
func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// WithCI selects the CI profile.
func WithCI(ci bool) Option {
	return func(s *Store) { s.ci = ci }
}

// WithLookupEnv sets the function resolving ${NAME} placeholders.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(s *Store) { s.lookupEnv = lookup }
}

// New returns the Store for the project rooted at projectPath. Nothing is
// read until the first lookup.
//
// Without options the CI profile follows the CI environment variable and
// placeholders resolve against the process environment.
func New(projectPath string, opts ...Option) *Store {
	s := &Store{
		path:      filepath.Join(projectPath, FileName),
		ci:        os.Getenv("CI") != "",
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load = sync.OnceValues(s.readFile)
	return s
}

// Path returns the configuration file path.
func (s *Store) Path() string { return s.path }

// IsCI reports whether the CI profile is active.
func (s *Store) IsCI() bool { return s.ci }

// Profiles returns the sections consulted by Read, in lookup order.
func (s *Store) Profiles() []string {
	if s.ci {
		return []string{ProfileCI, ProfileLocal, ProfileDefault}
	}
	return []string{ProfileLocal, ProfileDefault}
}

// Read returns the value of name from the first profile defining it, or
// def. When resolve is set, ${NAME} placeholders are substituted.
func (s *Store) Read(name, def string, resolve bool) (string, error) {
	v, err := s.load()
	if err != nil {
		return "", err
	}

	value := def
	key := strings.ToLower(name)
	for _, profile := range s.Profiles() {
		if v.IsSet(profile + "." + key) {
			value = v.GetString(profile + "." + key)
			break
		}
	}

	if !resolve {
		return value, nil
	}
	resolved, err := Resolve(value, s.lookupEnv)
	if err != nil {
		return "", fmt.Errorf("%s (%s): %w", name, s.path, err)
	}
	return resolved, nil
}

// readFile decodes the configuration file into Viper. A missing file is an
// empty configuration.
func (s *Store) readFile() (*viper.Viper, error) {
	v := viper.New()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := decodeINI(data)
	if err != nil {
		return nil, &InvalidConfigError{Path: s.path, Err: err}
	}
	if err := validate(configMap); err != nil {
		return nil, &InvalidConfigError{Path: s.path, Err: err}
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return v, nil
}

// decodeINI turns INI content into one map per section, names lowercased.
// Values are kept raw: no inline comments, no ini interpolation.
func decodeINI(data []byte) (map[string]any, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:        true,
		AllowPythonMultilineValues: true,
	}, data)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, section := range f.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		values := make(map[string]any, len(section.Keys()))
		for _, k := range section.Keys() {
			values[strings.ToLower(k.Name())] = k.Value()
		}
		out[strings.ToLower(section.Name())] = values
	}
	return out, nil
}

// validate unifies the decoded file with the #Config schema.
func validate(configMap map[string]any) error {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema, cue.Filename("schema.cue"))
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.Encode(configMap)
	if userValue.Err() != nil {
		return userValue.Err()
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return errors.New(strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
