package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/phrasefind/pkg/phrasefind/artifact"
	"github.com/cognicore/phrasefind/pkg/phrasefind/scorer"
)

func samplePhrases() []scorer.ScoredPhrase {
	return []scorer.ScoredPhrase{
		{Tokens: []string{"machine", "learning"}, Salience: 10, DomainCount: 100, PhraseID: 1000},
		{Tokens: []string{"machine", "learning", "algorithms"}, Salience: 20, DomainCount: 50, PhraseID: 1001},
	}
}

func TestBuildProducesAllFourArtifacts(t *testing.T) {
	dir := t.TempDir()
	manifest, err := Build(samplePhrases(), Config{Version: "v1", Tokenizer: "test"}, dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if manifest.NumPatterns != 2 {
		t.Errorf("expected 2 patterns in manifest, got %d", manifest.NumPatterns)
	}

	for _, name := range []string{AutomatonFile, PayloadsFile, ManifestFile, VocabFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected artifact %s to exist: %v", name, err)
		}
		if _, err := os.Stat(path + ".tmp"); err == nil {
			t.Errorf("temp file %s.tmp should have been renamed away", name)
		}
	}

	payloads, err := artifact.ReadPayloads(filepath.Join(dir, PayloadsFile))
	if err != nil {
		t.Fatalf("ReadPayloads: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("expected 2 payload records, got %d", len(payloads))
	}
	if int(payloads[0].N) != 2 || int(payloads[1].N) != 3 {
		t.Errorf("unexpected payload lengths: %+v", payloads)
	}
}

func TestBuildRejectsDuplicatePhraseID(t *testing.T) {
	phrases := samplePhrases()
	phrases[1].PhraseID = phrases[0].PhraseID
	if _, err := Build(phrases, Config{Version: "v1"}, t.TempDir()); err == nil {
		t.Error("expected an error for duplicate phrase_id")
	}
}

func TestBuildRejectsEmptyPhraseList(t *testing.T) {
	if _, err := Build(nil, Config{Version: "v1"}, t.TempDir()); err == nil {
		t.Error("expected an error for an empty phrase list")
	}
}

func TestPayloadTableSizeMatchesManifest(t *testing.T) {
	dir := t.TempDir()
	manifest, err := Build(samplePhrases(), Config{Version: "v1"}, dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, PayloadsFile))
	if err != nil {
		t.Fatal(err)
	}
	if int(info.Size()) != artifact.PayloadRecordSize*manifest.NumPatterns {
		t.Errorf("payloads.bin size %d != %d * num_patterns (%d)", info.Size(), artifact.PayloadRecordSize, manifest.NumPatterns)
	}
}

func TestSeparatorCollisionIsFatal(t *testing.T) {
	// The sample phrases' three distinct tokens get ids 1..3; reserving
	// separator_id=1 forces a collision with the first of them.
	_, err := Build(samplePhrases(), Config{Version: "v1", SeparatorID: 1}, t.TempDir())
	if err == nil {
		t.Error("expected a separator collision error")
	}
}
