// Package config loads the YAML configuration for each pipeline stage, the
// way cognicore-io-korel's pkg/korel/config loads stoplist/dict/taxonomy
// files: os.ReadFile followed by yaml.Unmarshal, errors wrapped with
// fmt.Errorf("...: %w", err).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MineConfig is the miner stage's configuration (spec §4.1, §6).
type MineConfig struct {
	CorpusPath string `yaml:"corpusPath"`
	OutputPath string `yaml:"outputPath"`
	MinN       int    `yaml:"minN"`
	MaxN       int    `yaml:"maxN"`
	MinCount   uint32 `yaml:"minCount"`

	// Kafka is an optional streaming corpus source, additive to CorpusPath
	// (SPEC_FULL §4.4 domain additions, generalized to the miner's input).
	Kafka *KafkaSource `yaml:"kafka,omitempty"`
}

// ScoreConfig is the scorer stage's configuration (spec §4.2, §6).
type ScoreConfig struct {
	DomainCandidatesPath     string  `yaml:"domainCandidatesPath"`
	BackgroundCandidatesPath string  `yaml:"backgroundCandidatesPath,omitempty"`
	OutputPath               string  `yaml:"outputPath"`
	Method                   string  `yaml:"method"`
	MinSalience              float64 `yaml:"minSalience"`
	MinDomainCount           uint32  `yaml:"minDomainCount"`
	AssignPhraseIDs          bool    `yaml:"assignPhraseIds"`
	StartingPhraseID         uint32  `yaml:"startingPhraseId,omitempty"`

	// SQLitePath, when set, backs the background distribution with the
	// sqlite-backed store instead of loading BackgroundCandidatesPath
	// wholesale into memory (SPEC_FULL §4.2, "optional background-count
	// store").
	SQLitePath string `yaml:"sqlitePath,omitempty"`
}

// BuildConfig is the builder stage's configuration (spec §4.3, §6).
type BuildConfig struct {
	ScoredPhrasesPath string   `yaml:"scoredPhrasesPath"`
	OutputDir         string   `yaml:"outputDir"`
	Version           string   `yaml:"version"`
	Tokenizer         string   `yaml:"tokenizer"`
	SeparatorID       uint32   `yaml:"separatorId,omitempty"`
	MinCount          *uint32  `yaml:"minCount,omitempty"`
	SalienceThreshold *float64 `yaml:"salienceThreshold,omitempty"`
}

// TaggerConfig is the tagger stage's configuration (spec §6, "Tagger
// config: paths to the four artifact files, policy, max_spans, label").
type TaggerConfig struct {
	AutomatonPath string `yaml:"automatonPath"`
	PayloadsPath  string `yaml:"payloadsPath"`
	ManifestPath  string `yaml:"manifestPath"`
	VocabPath     string `yaml:"vocabPath"`

	CorpusPath string `yaml:"corpusPath"`
	OutputPath string `yaml:"outputPath"`
	Policy     string `yaml:"policy"`
	MaxSpans   int    `yaml:"maxSpans"`
	Label      string `yaml:"label"`

	// Workers>1 switches the driver from Tagger.Run to Tagger.RunPool
	// (SPEC_FULL §4.4, "bounded worker pool").
	Workers int `yaml:"workers,omitempty"`

	Kafka    *KafkaSource  `yaml:"kafka,omitempty"`
	Postgres *PostgresSink `yaml:"postgres,omitempty"`
}

// DaemonConfig is the matcher daemon's configuration (SPEC_FULL §4.4,
// "Matcher daemon").
type DaemonConfig struct {
	ArtifactDir   string `yaml:"artifactDir"`
	ListenAddr    string `yaml:"listenAddr"`
	MetricsPath   string `yaml:"metricsPath"`
	HealthPath    string `yaml:"healthPath"`
	DefaultPolicy string `yaml:"defaultPolicy"`
	MaxSpans      int    `yaml:"maxSpans"`

	Redis *RedisReload `yaml:"redis,omitempty"`
}

// KafkaSource configures an optional Kafka-backed document stream
// (SPEC_FULL §4.4, "Tagger stream source"; DOMAIN STACK, segmentio/kafka-go).
type KafkaSource struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupId"`
}

// PostgresSink configures the tagger's optional span export
// (SPEC_FULL §4.4, "Postgres export").
type PostgresSink struct {
	DSN       string `yaml:"dsn"`
	TableName string `yaml:"tableName"`
}

// RedisReload configures the matcher daemon's hot-reload subscription
// (SPEC_FULL §4.4, "Hot reload over Redis").
type RedisReload struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadMineConfig reads a miner YAML config file.
func LoadMineConfig(path string) (*MineConfig, error) {
	var c MineConfig
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadScoreConfig reads a scorer YAML config file.
func LoadScoreConfig(path string) (*ScoreConfig, error) {
	var c ScoreConfig
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadBuildConfig reads a builder YAML config file.
func LoadBuildConfig(path string) (*BuildConfig, error) {
	var c BuildConfig
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadTaggerConfig reads a tagger YAML config file.
func LoadTaggerConfig(path string) (*TaggerConfig, error) {
	var c TaggerConfig
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDaemonConfig reads a matcher daemon YAML config file.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	var c DaemonConfig
	if err := loadYAML(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
