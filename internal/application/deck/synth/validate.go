package synth

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kaptinlin/jsonschema"

	wfmodel "pitchforge-ai-api/internal/workflow/model"
)

// SchemaValidator 边界处的结构校验，问题交给修复逻辑处理而不是直接失败
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator 编译内容输出 Schema
func NewSchemaValidator() (*SchemaValidator, error) {
	raw, err := json.Marshal(wfmodel.DeckContentJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content schema: %w", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid content schema: %w", err)
	}
	return &SchemaValidator{schema: compiled}, nil
}

// Issues 返回按字段排序的校验问题；合法时返回空
func (v *SchemaValidator) Issues(data map[string]any) []string {
	if v == nil || v.schema == nil {
		return nil
	}
	result := v.schema.Validate(data)
	if result.IsValid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors))
	for field, e := range result.Errors {
		msg := field
		if e != nil {
			msg = field + ": " + e.Message
		}
		issues = append(issues, msg)
	}
	sort.Strings(issues)
	return issues
}
