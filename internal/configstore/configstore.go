// Package configstore persists pipeline configuration documents as JSON
// files under a single root directory.
//
// The on-disk shape is {version, updatedAt, schema} where schema is the
// full pipeline configuration. Loading is tolerant: absent optional fields
// default rather than failing the load. All paths are sandboxed under the
// root — a name that escapes it or that is not a .json document is
// rejected before any filesystem access.
//
// Saves are atomic (temp file + rename) and respect a per-document lock
// marker, so an operator can pin a known-good configuration against
// accidental overwrites from the admin API.
package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sheetpipe/internal/config"
)

var (
	// ErrOutsideRoot reports a document name that escapes the store root.
	ErrOutsideRoot = errors.New("configstore: path escapes the store root")
	// ErrNotJSON reports a document name without the .json extension.
	ErrNotJSON = errors.New("configstore: only .json documents are accepted")
	// ErrLocked reports a save against a locked document.
	ErrLocked = errors.New("configstore: document is locked")
)

// Document is the persisted envelope around a pipeline schema.
type Document struct {
	Version   int             `json:"version"`
	UpdatedAt string          `json:"updatedAt"`
	Schema    config.Pipeline `json:"schema"`
}

// Store reads and writes pipeline documents under one root directory.
type Store struct {
	root string
}

// New returns a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("configstore: resolve root %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("configstore: create root %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store root directory.
func (s *Store) Root() string { return s.root }

// Path resolves a document name to its sandboxed absolute path. The name
// must end in .json and must not climb out of the root.
func (s *Store) Path(name string) (string, error) {
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return "", fmt.Errorf("%w: %s", ErrNotJSON, name)
	}
	p := filepath.Join(s.root, filepath.Clean("/"+name))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return p, nil
}

// Load reads a document and returns its fully-defaulted pipeline. Fields
// missing from the schema are defaulted, never treated as errors; only an
// unreadable file or invalid JSON fails the load.
func (s *Store) Load(name string) (config.Pipeline, error) {
	doc, err := s.LoadDocument(name)
	if err != nil {
		return config.Pipeline{}, err
	}
	return doc.Schema, nil
}

// LoadDocument reads the raw envelope, defaulting the embedded schema.
func (s *Store) LoadDocument(name string) (Document, error) {
	p, err := s.Path(name)
	if err != nil {
		return Document{}, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return Document{}, fmt.Errorf("configstore: read %s: %w", name, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("configstore: decode %s: %w", name, err)
	}
	doc.Schema.ApplyDefaults()
	return doc, nil
}

// Save writes the pipeline atomically, bumping the document version and
// stamping updatedAt. A locked document returns ErrLocked untouched.
func (s *Store) Save(name string, p config.Pipeline) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if s.Locked(name) {
		return fmt.Errorf("%w: %s", ErrLocked, name)
	}

	version := 1
	if prev, err := s.LoadDocument(name); err == nil {
		version = prev.Version + 1
	}
	p.ApplyDefaults()
	doc := Document{
		Version:   version,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Schema:    p,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.root, ".save-*")
	if err != nil {
		return fmt.Errorf("configstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("configstore: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configstore: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("configstore: rename into place: %w", err)
	}
	return nil
}

// Template returns a fully-defaulted empty document, suitable as a starting
// point for a new pipeline.
func Template() Document {
	return Document{
		Version:   1,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Schema:    config.Default(),
	}
}

// Lock creates the lock marker for a document; further saves fail with
// ErrLocked until Unlock.
func (s *Store) Lock(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p+".lock", []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
}

// Unlock removes the lock marker. Unlocking an unlocked document is a no-op.
func (s *Store) Unlock(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p + ".lock"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("configstore: unlock %s: %w", name, err)
	}
	return nil
}

// Locked reports whether the document carries a lock marker.
func (s *Store) Locked(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p + ".lock")
	return err == nil
}

// List returns the document names present in the store, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("configstore: list %s: %w", s.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
