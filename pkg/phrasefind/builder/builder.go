// Package builder implements stage three of the pipeline: compiling scored
// phrases into the artifact set the matcher loads (spec §4.3).
package builder

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/phrasefind/pkg/phrasefind/artifact"
	"github.com/cognicore/phrasefind/pkg/phrasefind/automaton"
	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
	"github.com/cognicore/phrasefind/pkg/phrasefind/scorer"
	"github.com/cognicore/phrasefind/pkg/phrasefind/vocab"
)

// ArtifactNames are the four co-located files a build produces (spec §3,
// §6).
const (
	AutomatonFile = "automaton.daac"
	PayloadsFile  = "payloads.bin"
	ManifestFile  = "manifest.json"
	VocabFile     = "vocab.json"
)

// Config is the builder's input configuration (spec §6, "Build config").
type Config struct {
	Version           string   `yaml:"version"`
	Tokenizer         string   `yaml:"tokenizer"`
	SeparatorID       uint32   `yaml:"separatorId"`
	MinCount          *uint32  `yaml:"minCount,omitempty"`
	SalienceThreshold *float64 `yaml:"salienceThreshold,omitempty"`
}

// Validate applies the default separator ID when the config omits one.
func (c *Config) Validate() error {
	if c.SeparatorID == 0 {
		c.SeparatorID = vocab.DefaultSeparatorID
	}
	if c.Version == "" {
		return fmt.Errorf("%w: version is required", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Build assembles the four artifact files under outDir from phrases, in the
// order phrases were read (that order becomes automaton pattern order,
// spec §4.3 step 2). Outputs are staged under temporary names and renamed
// into place only once every file has been written successfully
// (spec §4.3, "Atomicity").
func Build(phrases []scorer.ScoredPhrase, cfg Config, outDir string) (artifact.Manifest, error) {
	if err := cfg.Validate(); err != nil {
		return artifact.Manifest{}, err
	}
	if len(phrases) == 0 {
		return artifact.Manifest{}, fmt.Errorf("%w: empty phrase list", internalerr.ErrInvalidInput)
	}
	if err := checkUniquePhraseIDs(phrases); err != nil {
		return artifact.Manifest{}, err
	}

	tokenSeqs := make([][]string, len(phrases))
	for i, p := range phrases {
		tokenSeqs[i] = p.Tokens
	}
	vb, err := vocab.Build(tokenSeqs, cfg.SeparatorID)
	if err != nil {
		return artifact.Manifest{}, err
	}

	autoBuilder := automaton.NewBuilder()
	payloads := make([]artifact.Payload, len(phrases))
	for i, p := range phrases {
		ids := vb.EncodeTokens(p.Tokens)
		if _, err := autoBuilder.AddPattern(ids); err != nil {
			return artifact.Manifest{}, fmt.Errorf("phrase %q: %w", strings.Join(p.Tokens, " "), err)
		}
		payloads[i] = artifact.Payload{
			PhraseID: p.PhraseID,
			Salience: p.Salience,
			Count:    p.DomainCount,
			N:        uint8(len(p.Tokens)),
		}
	}

	auto, err := autoBuilder.Build()
	if err != nil {
		return artifact.Manifest{}, err
	}

	now := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	manifest := artifact.NewManifest(cfg.Version, cfg.Tokenizer, auto.NumPatterns(), cfg.SeparatorID, cfg.MinCount, cfg.SalienceThreshold, now, entropy)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return artifact.Manifest{}, fmt.Errorf("create output dir: %w", err)
	}

	if err := stage(outDir, AutomatonFile, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = auto.WriteTo(f)
		return err
	}); err != nil {
		return artifact.Manifest{}, fmt.Errorf("write automaton: %w", err)
	}

	if err := stage(outDir, PayloadsFile, func(tmp string) error {
		return artifact.WritePayloads(tmp, payloads)
	}); err != nil {
		return artifact.Manifest{}, fmt.Errorf("write payloads: %w", err)
	}

	if err := stage(outDir, VocabFile, func(tmp string) error {
		return vb.WriteFile(tmp)
	}); err != nil {
		return artifact.Manifest{}, fmt.Errorf("write vocab: %w", err)
	}

	if err := stage(outDir, ManifestFile, func(tmp string) error {
		return artifact.WriteManifest(tmp, manifest)
	}); err != nil {
		return artifact.Manifest{}, fmt.Errorf("write manifest: %w", err)
	}

	for _, name := range []string{AutomatonFile, PayloadsFile, VocabFile, ManifestFile} {
		final := filepath.Join(outDir, name)
		if err := os.Rename(final+".tmp", final); err != nil {
			return artifact.Manifest{}, fmt.Errorf("commit %s: %w", name, err)
		}
	}

	return manifest, nil
}

// stage writes to a ".tmp" sibling of name under dir via write, removing it
// again if write fails. Build renames the staged files into place only after
// all four have been written; os.Rename is atomic within a single
// filesystem, so a reader never observes a partially written file under a
// final name.
func stage(dir, name string, write func(tmpPath string) error) error {
	tmp := filepath.Join(dir, name) + ".tmp"
	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func checkUniquePhraseIDs(phrases []scorer.ScoredPhrase) error {
	seen := make(map[uint32]struct{}, len(phrases))
	for _, p := range phrases {
		if _, ok := seen[p.PhraseID]; ok {
			return fmt.Errorf("phrase_id %d: %w", p.PhraseID, internalerr.ErrDuplicate)
		}
		seen[p.PhraseID] = struct{}{}
	}
	return nil
}
