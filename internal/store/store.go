// Package store implements the host context shared with pipeline
// expressions and output: values addressed by a dotted path within one of
// three scopes. The msg scope is local to one batch (the caller owns the
// message map), while flow and global survive across runs.
//
// Paths are JSONPath child expressions parsed with ohler55/ojg's jp package,
// so "payload.items" addresses msg["payload"]["items"], creating
// intermediate maps on Set.
package store

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Scope names accepted by Get and Set.
const (
	ScopeMsg    = "msg"
	ScopeFlow   = "flow"
	ScopeGlobal = "global"
)

// Store holds the flow- and global-scoped maps. Values are read and written
// without locking; callers serialize batches (the engine runs one batch at a
// time by construction).
type Store struct {
	flow   map[string]any
	global map[string]any
}

// New returns a Store with empty flow and global scopes.
func New() *Store {
	return &Store{
		flow:   map[string]any{},
		global: map[string]any{},
	}
}

// Get reads the value at path within the named scope. msg is the current
// batch message, consulted only for the msg scope. The second return is
// false when the path does not resolve.
func (s *Store) Get(scope, path string, msg map[string]any) (any, bool) {
	root, err := s.root(scope, msg)
	if err != nil {
		return nil, false
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, false
	}
	got := x.Get(root)
	if len(got) == 0 {
		return nil, false
	}
	return got[0], true
}

// Set writes value at path within the named scope, creating intermediate
// maps as needed. Writes to the msg scope land in the caller's message map.
func (s *Store) Set(scope, path string, msg map[string]any, value any) error {
	root, err := s.root(scope, msg)
	if err != nil {
		return err
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	if err := x.Set(root, value); err != nil {
		return fmt.Errorf("set %s.%s: %w", scope, path, err)
	}
	return nil
}

// Flow exposes the flow-scoped map, primarily for tests and expression
// environments.
func (s *Store) Flow() map[string]any { return s.flow }

// Global exposes the global-scoped map.
func (s *Store) Global() map[string]any { return s.global }

func (s *Store) root(scope string, msg map[string]any) (map[string]any, error) {
	switch scope {
	case ScopeMsg:
		if msg == nil {
			return nil, fmt.Errorf("no message bound for msg scope")
		}
		return msg, nil
	case ScopeFlow:
		return s.flow, nil
	case ScopeGlobal:
		return s.global, nil
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}
