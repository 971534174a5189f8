package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMineConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mine.yaml")
	content := `corpusPath: corpus.jsonl
outputPath: candidates.jsonl
minN: 2
maxN: 4
minCount: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadMineConfig(path)
	if err != nil {
		t.Fatalf("LoadMineConfig: %v", err)
	}
	if c.MinN != 2 || c.MaxN != 4 || c.MinCount != 5 {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.Kafka != nil {
		t.Error("expected no kafka source when omitted from yaml")
	}
}

func TestLoadMineConfigWithKafka(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mine.yaml")
	content := `corpusPath: corpus.jsonl
outputPath: candidates.jsonl
minN: 2
maxN: 4
minCount: 5
kafka:
  brokers: ["localhost:9092"]
  topic: corpus-docs
  groupId: miner
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadMineConfig(path)
	if err != nil {
		t.Fatalf("LoadMineConfig: %v", err)
	}
	if c.Kafka == nil || c.Kafka.Topic != "corpus-docs" || len(c.Kafka.Brokers) != 1 {
		t.Errorf("unexpected kafka config: %+v", c.Kafka)
	}
}

func TestLoadScoreConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "score.yaml")
	content := `domainCandidatesPath: domain.jsonl
outputPath: scored.jsonl
method: ratio
minSalience: 2.0
minDomainCount: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadScoreConfig(path)
	if err != nil {
		t.Fatalf("LoadScoreConfig: %v", err)
	}
	if c.Method != "ratio" || c.MinSalience != 2.0 {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.SQLitePath != "" {
		t.Error("expected empty sqlite path when omitted")
	}
}

func TestLoadTaggerConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tagger.yaml")
	content := `automatonPath: automaton.daac
payloadsPath: payloads.bin
manifestPath: manifest.json
vocabPath: vocab.json
corpusPath: corpus.jsonl
outputPath: tagged.jsonl
policy: leftmost_longest
maxSpans: 50
label: domain_phrase
workers: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadTaggerConfig(path)
	if err != nil {
		t.Fatalf("LoadTaggerConfig: %v", err)
	}
	if c.Policy != "leftmost_longest" || c.Workers != 8 || c.Label != "domain_phrase" {
		t.Errorf("unexpected config: %+v", c)
	}
}

func TestLoadConfigNonExistentFile(t *testing.T) {
	if _, err := LoadMineConfig("/nonexistent/path.yaml"); err == nil {
		t.Error("expected an error for a non-existent mine config")
	}
	if _, err := LoadBuildConfig("/nonexistent/path.yaml"); err == nil {
		t.Error("expected an error for a non-existent build config")
	}
}
