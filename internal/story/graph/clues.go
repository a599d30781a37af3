package graph

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type clueFile struct {
	Clues []ClueOutcome `yaml:"clues"`
}

// LoadCluesFromBytes parses a YAML document with a top-level "clues" list.
//
// Postcondition: Returns an error for unknown fields or a missing clue id.
func LoadCluesFromBytes(data []byte) ([]ClueOutcome, error) {
	var file clueFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing clue YAML: %w", err)
	}
	for i, c := range file.Clues {
		if c.ClueID == "" {
			return nil, fmt.Errorf("clue %d: clue_id must not be empty", i)
		}
	}
	return file.Clues, nil
}

// LoadCluesFromFile reads a clue outcome file.
func LoadCluesFromFile(path string) ([]ClueOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading clue file %s: %w", path, err)
	}
	return LoadCluesFromBytes(data)
}
