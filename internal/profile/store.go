package profile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultTable []byte

// Table is the document form of a profile table.
type Table struct {
	Profiles []Definition `yaml:"profiles"`
}

// Store is the read-only, process-wide profile lookup. It is built once at
// startup and safe for any number of concurrent readers.
type Store struct {
	byID     map[string]*Profile
	profiles []*Profile
}

// NewStore validates every definition and indexes the resulting profiles by
// type id and alias. Any invalid definition fails the whole table.
func NewStore(defs []Definition) (*Store, error) {
	s := &Store{byID: make(map[string]*Profile)}
	for _, def := range defs {
		p, err := New(def)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byID[p.typeID]; dup {
			return nil, invalid(p.typeID, "type", "duplicate type id or alias")
		}
		s.byID[p.typeID] = p
		for _, a := range p.aliases {
			if _, dup := s.byID[a]; dup {
				return nil, invalid(p.typeID, "aliases", "alias %q collides with an existing type id or alias", a)
			}
			s.byID[a] = p
		}
		s.profiles = append(s.profiles, p)
	}
	sort.Slice(s.profiles, func(i, j int) bool { return s.profiles[i].typeID < s.profiles[j].typeID })
	return s, nil
}

// Parse decodes a YAML profile table and builds a Store from it. Unknown
// keys are rejected so a misspelled field fails the load.
func Parse(data []byte) (*Store, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile table: %w", err)
	}
	if len(t.Profiles) == 0 {
		return nil, fmt.Errorf("parse profile table: no profiles defined")
	}
	return NewStore(t.Profiles)
}

// LoadFile reads a profile table from path. An empty path loads the embedded
// default table.
func LoadFile(path string) (*Store, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile table: %w", err)
	}
	return Parse(data)
}

// Default builds a Store from the embedded profile table.
func Default() (*Store, error) {
	return Parse(defaultTable)
}

// Get returns the profile registered under typeID, which may be a canonical
// id or an alias.
func (s *Store) Get(typeID string) (*Profile, error) {
	p, ok := s.byID[typeID]
	if !ok {
		return nil, &UnknownTypeError{TypeID: typeID}
	}
	return p, nil
}

// All returns every profile sorted by type id.
func (s *Store) All() []*Profile {
	return append([]*Profile(nil), s.profiles...)
}

// Types returns the canonical type ids sorted.
func (s *Store) Types() []string {
	out := make([]string, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.typeID
	}
	return out
}
