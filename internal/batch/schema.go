package batch

import (
	"encoding/json"
	"path/filepath"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*jsonschema.Schema)
)

func validatePlan(schemaPath string, planJSON []byte) error {
	schema, err := loadCompiledSchema(schemaPath)
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(planJSON, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func loadCompiledSchema(schemaPath string) (*jsonschema.Schema, error) {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return nil, err
	}

	schemaCacheMu.Lock()
	if cached, ok := schemaCache[abs]; ok {
		schemaCacheMu.Unlock()
		return cached, nil
	}
	schemaCacheMu.Unlock()

	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile("file://" + filepath.ToSlash(abs))
	if err != nil {
		return nil, err
	}

	schemaCacheMu.Lock()
	schemaCache[abs] = compiled
	schemaCacheMu.Unlock()
	return compiled, nil
}
