package sketch

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Gemini sometimes wraps JSON-mode responses in markdown fences.
var fencePattern = regexp.MustCompile("(?s)```json\\s*|\\s*```")

// ParseArtifact is the single boundary between raw collaborator text
// and a typed artifact. It strips incidental markdown fences, decodes
// the JSON pair, and requires a non-empty code field. Failures are
// ErrMalformedArtifact, distinct from collaborator-unreachable errors.
func ParseArtifact(raw string) (*Artifact, error) {
	clean := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))

	var artifact Artifact
	if err := json.Unmarshal([]byte(clean), &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if strings.TrimSpace(artifact.Code) == "" {
		return nil, fmt.Errorf("%w: missing arduino_code", ErrMalformedArtifact)
	}
	return &artifact, nil
}
