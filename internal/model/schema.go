// internal/model/schema.go
package model

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/qri-io/jsonschema"

	custom_errors "githop/internal/errors"
)

// SchemaKind names a JSON document stored in a JSONB column.
type SchemaKind string

const (
	SchemaBadges            SchemaKind = "badges"
	SchemaPersonas          SchemaKind = "personas"
	SchemaLanguageExpertise SchemaKind = "language_expertise"
	SchemaWorkSummary       SchemaKind = "work_summary"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[SchemaKind]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = make(map[SchemaKind]*jsonschema.Schema)
	for _, kind := range []SchemaKind{SchemaBadges, SchemaPersonas, SchemaLanguageExpertise, SchemaWorkSummary} {
		raw, err := schemaFS.ReadFile("schemas/" + string(kind) + ".json")
		if err != nil {
			schemasErr = fmt.Errorf("failed to read %s schema: %w", kind, err)
			return
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(raw, rs); err != nil {
			schemasErr = fmt.Errorf("failed to parse %s schema: %w", kind, err)
			return
		}
		schemas[kind] = rs
	}
}

// EncodeJSON marshals v and validates the result against the schema of kind.
// The returned bytes are safe to write into the matching JSONB column.
func EncodeJSON(ctx context.Context, kind SchemaKind, v any) ([]byte, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	rs, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema kind %q", kind)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	verrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", kind, err)
	}
	if len(verrs) > 0 {
		problems := make([]string, 0, len(verrs))
		for _, v := range verrs {
			problems = append(problems, v.PropertyPath+": "+v.Message)
		}
		return nil, &custom_errors.ErrSchemaViolation{Kind: string(kind), Problems: problems}
	}
	return data, nil
}
