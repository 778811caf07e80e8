// Package payload assembles and validates the wire contract consumed by
// the remote registration/identification backend: the ordered key event
// log plus the final text and an optional username. The backend itself
// is an opaque collaborator; this package only produces and checks the
// boundary format.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"keyprint/internal/model"
)

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "keyprint/sample.schema.json",
  "type": "object",
  "properties": {
    "username": {"type": "string", "minLength": 1},
    "text": {"type": "string"},
    "keystroke_events": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"enum": ["press", "release"]},
          "key": {"type": "string"},
          "code": {"type": "string"},
          "timestamp": {"type": "number"},
          "nativeCode": {"type": "integer"}
        },
        "required": ["type", "timestamp"]
      }
    }
  },
  "required": ["keystroke_events", "text"]
}`

var sampleSchema = jsonschema.MustCompileString("sample.schema.json", schemaJSON)

// Sample is one captured typing sample in wire form. Username is empty
// for identification requests.
type Sample struct {
	Username string           `json:"username,omitempty"`
	Events   []model.KeyEvent `json:"keystroke_events"`
	Text     string           `json:"text"`
}

// New builds a sample payload from a session's event log and final text.
func New(username, text string, events []model.KeyEvent) Sample {
	if events == nil {
		events = []model.KeyEvent{}
	}
	return Sample{Username: username, Events: events, Text: text}
}

// Marshal validates the sample against the wire schema and encodes it.
func (s Sample) Marshal() ([]byte, error) {
	if s.Events == nil {
		s.Events = []model.KeyEvent{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sample: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode validates raw JSON against the wire schema and parses it into
// a Sample. Used for externally captured event logs.
func Decode(data []byte) (Sample, error) {
	if err := Validate(data); err != nil {
		return Sample{}, err
	}
	var s Sample
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return Sample{}, fmt.Errorf("failed to decode sample: %w", err)
	}
	return s, nil
}

// Validate checks raw JSON against the sample schema.
func Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("sample is not valid JSON: %w", err)
	}
	if err := sampleSchema.Validate(doc); err != nil {
		return fmt.Errorf("sample does not match schema: %w", err)
	}
	return nil
}
