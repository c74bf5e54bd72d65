package audit

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

var verdictSchema = mustStrictSchema[judgeVerdict]()

// strictSchema reflects T into the schema form strict structured output
// accepts: objects are closed and list every property as required, in
// declaration order.
func strictSchema[T any]() (map[string]any, error) {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	s := r.Reflect(v)
	closeObjects(s)

	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %T: %w", v, err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode schema for %T: %w", v, err)
	}
	return out, nil
}

func mustStrictSchema[T any]() map[string]any {
	s, err := strictSchema[T]()
	if err != nil {
		panic(err)
	}
	return s
}

func closeObjects(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	if s.Type == "object" {
		s.AdditionalProperties = jsonschema.FalseSchema
		s.Required = nil
	}
	if s.Properties != nil {
		for p := s.Properties.Oldest(); p != nil; p = p.Next() {
			if s.Type == "object" {
				s.Required = append(s.Required, p.Key)
			}
			closeObjects(p.Value)
		}
	}
	closeObjects(s.Items)
}
