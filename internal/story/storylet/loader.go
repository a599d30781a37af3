package storylet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// contentFile is the top-level structure of a storylet content file.
type contentFile struct {
	Storylets []*Storylet `json:"storylets"`
}

// ContentJSON converts a YAML content document into its JSON equivalent.
// Trigger and effect unions are decoded from JSON, so every YAML document is
// normalised through this form before decoding.
//
// Postcondition: Returns JSON bytes or a non-nil error for invalid YAML.
func ContentJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing storylet YAML: %w", err)
	}
	out, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("converting storylet YAML: %w", err)
	}
	return out, nil
}

// LoadFromBytes parses a YAML content document with a top-level
// "storylets" list.
//
// Precondition: data must be YAML conforming to the content schema.
// Postcondition: Returns storylets in document order or a non-nil error.
func LoadFromBytes(data []byte) ([]*Storylet, error) {
	js, err := ContentJSON(data)
	if err != nil {
		return nil, err
	}
	return decodeContentJSON(js)
}

func decodeContentJSON(js []byte) ([]*Storylet, error) {
	var file contentFile
	if err := json.Unmarshal(js, &file); err != nil {
		return nil, fmt.Errorf("decoding storylets: %w", err)
	}
	for i, s := range file.Storylets {
		if s == nil {
			return nil, fmt.Errorf("storylet %d: empty entry", i)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("validating storylet: %w", err)
		}
	}
	return file.Storylets, nil
}

// LoadFromFile reads and parses a single YAML content file.
//
// Precondition: path must point to a readable YAML content file.
// Postcondition: Returns storylets in document order or a non-nil error.
func LoadFromFile(path string) ([]*Storylet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading storylet file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// Loader reads storylet content directories.
type Loader struct {
	// Strict enables JSON-schema checking of each document before decoding.
	Strict bool
}

// LoadDir loads every *.yaml and *.yml file in dir, in file-name order, and
// builds a Registry from the concatenated storylets.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Registry or the first error encountered.
func (l Loader) LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading storylet directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no storylet files found in %s", dir)
	}
	sort.Strings(names)

	var all []*Storylet
	for _, name := range names {
		storylets, err := l.loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading storylets from %s: %w", name, err)
		}
		all = append(all, storylets...)
	}
	return NewRegistry(all)
}

func (l Loader) loadFile(path string) ([]*Storylet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading storylet file %s: %w", path, err)
	}
	js, err := ContentJSON(data)
	if err != nil {
		return nil, err
	}
	if l.Strict {
		if err := ValidateContentDocument(js); err != nil {
			return nil, err
		}
	}
	return decodeContentJSON(js)
}

// LoadDir loads a content directory without schema checking.
func LoadDir(dir string) (*Registry, error) {
	return Loader{}.LoadDir(dir)
}

// normalizeYAML rewrites map[any]any nodes into map[string]any so the
// document can be encoded as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}
