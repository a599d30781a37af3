package storylet

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/storylet.schema.json
var schemaText string

const schemaURL = "storylet.schema.json"

var (
	schemaOnce     sync.Once
	registrySchema *jsonschema.Schema
	contentSchema  *jsonschema.Schema
	schemaErr      error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, strings.NewReader(schemaText)); err != nil {
		schemaErr = fmt.Errorf("adding storylet schema: %w", err)
		return
	}
	registrySchema, schemaErr = c.Compile(schemaURL + "#/$defs/registry")
	if schemaErr != nil {
		schemaErr = fmt.Errorf("compiling registry schema: %w", schemaErr)
		return
	}
	contentSchema, schemaErr = c.Compile(schemaURL + "#/$defs/contentFile")
	if schemaErr != nil {
		schemaErr = fmt.Errorf("compiling content schema: %w", schemaErr)
	}
}

// ValidateDocument checks a registry JSON document (an id-keyed object of
// storylets) against the storylet schema. Decoding is lenient about
// malformed triggers and effects; this check is the strict alternative.
//
// Postcondition: Returns nil if the document conforms, or an error
// describing every violation.
func ValidateDocument(data []byte) error {
	return validateAgainst(data, func() *jsonschema.Schema { return registrySchema })
}

// ValidateContentDocument checks a content document ({"storylets": [...]},
// already converted to JSON by ContentJSON) against the storylet schema.
func ValidateContentDocument(data []byte) error {
	return validateAgainst(data, func() *jsonschema.Schema { return contentSchema })
}

func validateAgainst(data []byte, schema func() *jsonschema.Schema) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	if err := schema().Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
