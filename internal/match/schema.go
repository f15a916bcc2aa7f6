package match

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema is the wire schema for incoming match records. Unknown
// fields are rejected rather than silently ignored.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "urn:matchwitness:match-record-v1",
  "type": "object",
  "additionalProperties": false,
  "required": ["id", "created_at", "home_team", "away_team", "home_score",
               "away_score", "side", "goals", "assists", "outcome",
               "duration_min"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "created_at": {"type": "string", "format": "date-time"},
    "home_team": {"type": "string", "minLength": 1},
    "away_team": {"type": "string", "minLength": 1},
    "home_score": {"type": "integer"},
    "away_score": {"type": "integer"},
    "side": {"enum": ["home", "away"]},
    "goals": {"type": "integer", "minimum": 0},
    "assists": {"type": "integer", "minimum": 0},
    "outcome": {"enum": ["win", "loss", "draw"]},
    "duration_min": {"type": "integer"},
    "stats": {
      "type": "object",
      "additionalProperties": false,
      "required": ["home", "away"],
      "properties": {
        "home": {"$ref": "#/$defs/teamStats"},
        "away": {"$ref": "#/$defs/teamStats"}
      }
    }
  },
  "$defs": {
    "teamStats": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "goals": {"type": "integer"},
        "assists": {"type": "integer"},
        "shots": {"type": "integer"},
        "passes": {"type": "integer"},
        "pass_accuracy_pct": {"type": "number"},
        "possession_pct": {"type": "number"},
        "cards": {"type": "integer"}
      }
    }
  }
}`

var compiledRecordSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("match-record-v1.schema.json", bytes.NewReader([]byte(recordSchema))); err != nil {
		panic(fmt.Sprintf("match: add schema resource: %v", err))
	}
	schema, err := compiler.Compile("match-record-v1.schema.json")
	if err != nil {
		panic(fmt.Sprintf("match: compile schema: %v", err))
	}
	return schema
}

// DecodeRecord parses and schema-validates a JSON match record. Unknown
// fields, missing required fields and wrong types all fail here, before
// any validation layer runs.
func DecodeRecord(data []byte) (*MatchRecord, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if err := compiledRecordSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("record schema: %w", err)
	}

	var r MatchRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}

// EncodeRecord serializes a verified record for storage or export.
func EncodeRecord(v *VerifiedMatchRecord) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// DecodeVerifiedRecord parses a stored verified record.
func DecodeVerifiedRecord(data []byte) (*VerifiedMatchRecord, error) {
	var v VerifiedMatchRecord
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode verified record: %w", err)
	}
	return &v, nil
}
