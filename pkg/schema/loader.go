package schema

import (
	"embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const (
	RecordSchema = "extraction_record.schema.json"
	SuiteSchema  = "suite.schema.json"
)

//go:embed schemas/*.json
var embedded embed.FS

var (
	compiledMu sync.Mutex
	compiled   = map[string]*gojsonschema.Schema{}
)

// Validate checks doc against the schema file at schemaPath and returns the
// violations; the error is reserved for schema loading problems.
func Validate(schemaPath string, doc any) ([]string, error) {
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaPath)
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", schemaPath, err)
	}
	return violations(result), nil
}

// ValidateEmbedded checks doc against one of the schemas shipped with the
// module (RecordSchema or SuiteSchema).
func ValidateEmbedded(name string, doc any) ([]string, error) {
	s, err := load(name)
	if err != nil {
		return nil, err
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}
	return violations(result), nil
}

func ValidateRecord(doc any) ([]string, error) { return ValidateEmbedded(RecordSchema, doc) }

func ValidateSuite(doc any) ([]string, error) { return ValidateEmbedded(SuiteSchema, doc) }

func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	raw, err := embedded.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	compiled[name] = s
	return s, nil
}

func violations(result *gojsonschema.Result) []string {
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs
}
