package params

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const spaceSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["type"],
  "additionalProperties": false,
  "properties": {
    "type": {"type": "string", "enum": ["grid", "random", "empty"]},
    "trials": {"type": "integer", "minimum": 1},
    "dimensions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "values": {"type": "array", "minItems": 1},
          "range": {
            "type": "object",
            "required": ["from", "to", "step"],
            "additionalProperties": false,
            "properties": {
              "from": {"type": "number"},
              "to": {"type": "number"},
              "step": {"type": "number", "exclusiveMinimum": 0},
              "int": {"type": "boolean"}
            }
          }
        }
      }
    }
  }
}`

var (
	spaceSchemaOnce sync.Once
	spaceSchema     *jsonschema.Schema
	spaceSchemaErr  error
)

func compiledSpaceSchema() (*jsonschema.Schema, error) {
	spaceSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("space.json", strings.NewReader(spaceSchemaJSON)); err != nil {
			spaceSchemaErr = fmt.Errorf("add space schema failed: %w", err)
			return
		}
		spaceSchema, spaceSchemaErr = compiler.Compile("space.json")
	})
	return spaceSchema, spaceSchemaErr
}

// ParseSpaceJSON reads a space definition from a JSON payload. The
// definition may sit at the top level or under a "space" key; both shapes
// are validated against the same schema before decoding.
func ParseSpaceJSON(raw []byte) (SpaceDef, error) {
	var def SpaceDef
	body := string(raw)
	if !gjson.Valid(body) {
		return def, fmt.Errorf("space payload is not valid json")
	}
	doc := gjson.Parse(body)
	if wrapped := doc.Get("space"); wrapped.Exists() {
		if !wrapped.IsObject() {
			return def, fmt.Errorf("space payload field %q must be an object", "space")
		}
		doc = wrapped
	}
	if !doc.IsObject() {
		return def, fmt.Errorf("space payload must be an object")
	}

	schema, err := compiledSpaceSchema()
	if err != nil {
		return def, err
	}
	var generic any
	if err := json.Unmarshal([]byte(doc.Raw), &generic); err != nil {
		return def, fmt.Errorf("decode space payload failed: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return def, fmt.Errorf("space payload rejected: %w", err)
	}
	if err := json.Unmarshal([]byte(doc.Raw), &def); err != nil {
		return def, fmt.Errorf("decode space definition failed: %w", err)
	}
	return def, nil
}
