package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func gradeSchema() *Schema {
	return &Schema{
		Name: "grade-check",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score":    map[string]any{"type": "number"},
				"feedback": map[string]any{"type": "string"},
			},
			"required":             []any{"score", "feedback"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponseAccepts(t *testing.T) {
	good := json.RawMessage(`{"score": 5.5, "feedback": "Aproape."}`)
	if err := validateResponse(gradeSchema(), good); err != nil {
		t.Fatalf("conforming response rejected: %v", err)
	}
}

func TestValidateResponseNilSchemaPasses(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage("raport liber")); err != nil {
		t.Fatalf("no schema, no validation: %v", err)
	}
}

func TestValidateResponseRejectsShapeErrors(t *testing.T) {
	cases := []string{
		`{"score": "mare", "feedback": "ok"}`, // wrong type
		`{"feedback": "ok"}`,                  // missing required
		`{"score": 3, "feedback": "ok", "extra": 1}`,
		`[1,2,3]`,
		`not json`,
	}
	for _, body := range cases {
		err := validateResponse(gradeSchema(), json.RawMessage(body))
		var inv *ErrInvalidResponse
		if !errors.As(err, &inv) {
			t.Errorf("response %q: got %v, want ErrInvalidResponse", body, err)
			continue
		}
		if string(inv.Content) != body {
			t.Errorf("response %q: error does not carry the offending content", body)
		}
	}
}
