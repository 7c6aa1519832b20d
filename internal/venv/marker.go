// SPDX-License-Identifier: MPL-2.0

package venv

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magiconair/properties"
)

// ErrMarkerMissing is returned when an environment root has no pyvenv.cfg.
var ErrMarkerMissing = errors.New("environment marker file not found")

type (
	// Marker holds the key/value pairs of a pyvenv.cfg file.
	Marker struct {
		props *properties.Properties
	}

	// MarkerMissingError reports the root lacking its marker file.
	MarkerMissingError struct {
		Root string
	}
)

// Error implements the error interface.
func (e *MarkerMissingError) Error() string {
	return fmt.Sprintf("%s not found in %s: not a virtual environment", ConfigFile, e.Root)
}

// Unwrap returns ErrMarkerMissing.
func (e *MarkerMissingError) Unwrap() error { return ErrMarkerMissing }

// ReadMarker parses the pyvenv.cfg file of the environment rooted at root.
func ReadMarker(root string) (*Marker, error) {
	path := filepath.Join(root, ConfigFile)
	buf, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &MarkerMissingError{Root: root}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseMarker(buf)
}

// ParseMarker parses pyvenv.cfg content. Backslashes are literal there
// (Windows paths), so they are escaped before handing the content to the
// properties decoder.
func ParseMarker(buf []byte) (*Marker, error) {
	buf = bytes.ReplaceAll(buf, []byte(`\`), []byte(`\\`))
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}
	return &Marker{props: p}, nil
}

// Has reports whether key is declared, whatever its value.
func (m *Marker) Has(key string) bool {
	_, ok := m.props.Get(key)
	return ok
}

// Get returns the value of key, or "" if absent.
func (m *Marker) Get(key string) string {
	v, _ := m.props.Get(key)
	return v
}

// Version returns the interpreter version recorded by the creating tool.
func (m *Marker) Version() string {
	if v := m.Get("version"); v != "" {
		return v
	}
	return m.Get("version_info")
}
