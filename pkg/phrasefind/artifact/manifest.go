package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
)

// Manifest is the builder's manifest.json contents (spec §4.3 step 5).
// MinCount and SalienceThreshold are omitted from the JSON when the build
// config did not supply them, matching "if supplied in config".
type Manifest struct {
	Version           string   `json:"version"`
	Tokenizer         string   `json:"tokenizer"`
	NumPatterns       int      `json:"num_patterns"`
	MinCount          *uint32  `json:"min_count,omitempty"`
	SalienceThreshold *float64 `json:"salience_threshold,omitempty"`
	BuiltAt           string   `json:"built_at"`
	SeparatorID       uint32   `json:"separator_id"`
	BuildID           string   `json:"build_id"`
}

// NewManifest stamps BuiltAt (ISO-8601 UTC) and a fresh ULID BuildID, the
// build-to-manifest traceability addition in SPEC_FULL §3.
func NewManifest(version, tokenizer string, numPatterns int, separatorID uint32, minCount *uint32, salienceThreshold *float64, now time.Time, entropy ulid.MonotonicReader) Manifest {
	return Manifest{
		Version:           version,
		Tokenizer:         tokenizer,
		NumPatterns:       numPatterns,
		MinCount:          minCount,
		SalienceThreshold: salienceThreshold,
		BuiltAt:           now.UTC().Format(time.RFC3339),
		SeparatorID:       separatorID,
		BuildID:           ulid.MustNew(ulid.Timestamp(now), entropy).String(),
	}
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads manifest.json.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
