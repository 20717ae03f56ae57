package config

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/anvilide/core/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed anvil.embedded.schema.json
var embeddedSchemaData []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("anvil.json", strings.NewReader(string(embeddedSchemaData))); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = compiler.Compile("anvil.json")
	})
	return compiledSchema, compileErr
}

// Validate checks a parsed configuration against the embedded JSON Schema.
// The config is round-tripped through YAML and JSON so the validator sees
// plain maps and slices rather than Go structs.
func Validate(cfg *Config) error {
	s, err := schema()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to compile embedded config schema")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to marshal config for validation")
	}

	var generic interface{}
	if err := yaml.Unmarshal(yamlData, &generic); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to unmarshal config for validation")
	}
	generic = normalizeForJSON(generic)

	// Extension sections are free-form; strip them before validating since
	// the schema intentionally describes only the known keys.
	if m, ok := generic.(map[string]interface{}); ok {
		known := map[string]bool{"version": true, "project": true, "build": true, "terminal": true, "env": true}
		for k := range m {
			if !known[k] {
				delete(m, k)
			}
		}
	}

	if err := s.Validate(generic); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "configuration failed schema validation")
	}

	return nil
}

// normalizeForJSON converts YAML's map[interface{}]interface{} shapes into
// the map[string]interface{} shapes the JSON Schema validator expects.
func normalizeForJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalizeForJSON(item)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			key, _ := json.Marshal(k)
			out[strings.Trim(string(key), `"`)] = normalizeForJSON(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = normalizeForJSON(item)
		}
		return val
	default:
		return val
	}
}
