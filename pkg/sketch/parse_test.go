package sketch

import (
	"errors"
	"testing"
)

func TestParseArtifactPlainJSON(t *testing.T) {
	raw := `{"arduino_code": "void setup() {}", "wiring_instructions": "### Wiring"}`
	artifact, err := ParseArtifact(raw)
	if err != nil {
		t.Fatalf("ParseArtifact returned error: %v", err)
	}
	if artifact.Code != "void setup() {}" {
		t.Fatalf("unexpected code: %q", artifact.Code)
	}
	if artifact.Wiring != "### Wiring" {
		t.Fatalf("unexpected wiring: %q", artifact.Wiring)
	}
}

func TestParseArtifactStripsMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n{\"arduino_code\": \"void loop() {}\", \"wiring_instructions\": \"w\"}\n```"},
		{"bare fence", "```\n{\"arduino_code\": \"void loop() {}\", \"wiring_instructions\": \"w\"}\n```"},
		{"surrounding whitespace", "  \n{\"arduino_code\": \"void loop() {}\", \"wiring_instructions\": \"w\"}\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := ParseArtifact(tt.raw)
			if err != nil {
				t.Fatalf("ParseArtifact returned error: %v", err)
			}
			if artifact.Code != "void loop() {}" {
				t.Fatalf("unexpected code: %q", artifact.Code)
			}
		})
	}
}

func TestParseArtifactMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "sorry, I cannot help with that"},
		{"missing code field", `{"wiring_instructions": "w"}`},
		{"empty code field", `{"arduino_code": "  ", "wiring_instructions": "w"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact(tt.raw)
			if !errors.Is(err, ErrMalformedArtifact) {
				t.Fatalf("expected ErrMalformedArtifact, got %v", err)
			}
		})
	}
}
