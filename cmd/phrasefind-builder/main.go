package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cognicore/phrasefind/pkg/phrasefind/builder"
	"github.com/cognicore/phrasefind/pkg/phrasefind/config"
	"github.com/cognicore/phrasefind/pkg/phrasefind/pipeline"
	"github.com/cognicore/phrasefind/pkg/phrasefind/scorer"
)

func main() {
	configPath := flag.String("config", "", "Builder YAML config path (required)")
	reloadAddr := flag.String("reload-addr", "", "Redis address to publish a reload notification to after a successful build (optional)")
	reloadChannel := flag.String("reload-channel", "", "Redis channel for the reload notification (optional)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.LoadBuildConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if cfg.ScoredPhrasesPath == "" {
		log.Fatal("scoredPhrasesPath is required")
	}
	if cfg.OutputDir == "" {
		log.Fatal("outputDir is required")
	}

	phrases, err := loadScoredPhrases(cfg.ScoredPhrasesPath)
	if err != nil {
		log.Fatal("Failed to load scored phrases:", err)
	}
	log.Printf("Loaded %d scored phrases from %s", len(phrases), cfg.ScoredPhrasesPath)

	buildCfg := builder.Config{
		Version:           cfg.Version,
		Tokenizer:         cfg.Tokenizer,
		SeparatorID:       cfg.SeparatorID,
		MinCount:          cfg.MinCount,
		SalienceThreshold: cfg.SalienceThreshold,
	}

	manifest, err := builder.Build(phrases, buildCfg, cfg.OutputDir)
	if err != nil {
		log.Fatal("Build failed:", err)
	}

	log.Printf("Built artifact set version=%s patterns=%d in %s", manifest.Version, manifest.NumPatterns, cfg.OutputDir)

	if *reloadAddr != "" {
		if *reloadChannel == "" {
			log.Fatal("--reload-channel required when --reload-addr is set")
		}
		if err := pipeline.PublishReload(context.Background(), pipeline.ReloadConfig{
			Addr:    *reloadAddr,
			Channel: *reloadChannel,
		}, cfg.OutputDir); err != nil {
			// Reload notification is additive; a Redis outage here must
			// never fail an otherwise successful build (SPEC_FULL §7).
			log.Printf("Failed to publish reload notification (build still succeeded): %v", err)
		} else {
			log.Printf("Published reload notification on channel %s", *reloadChannel)
		}
	}
}

func loadScoredPhrases(path string) ([]scorer.ScoredPhrase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []scorer.ScoredPhrase
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scan.Scan() {
		lineNum++
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		var p scorer.ScoredPhrase
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("%s line %d: malformed json: %w", path, lineNum, err)
		}
		out = append(out, p)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
