package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/phrasefind/pkg/phrasefind/config"
	"github.com/cognicore/phrasefind/pkg/phrasefind/scorer"
	"github.com/cognicore/phrasefind/pkg/phrasefind/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Scorer YAML config path (required)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.LoadScoreConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if cfg.DomainCandidatesPath == "" {
		log.Fatal("domainCandidatesPath is required")
	}

	domain, err := scorer.LoadTable(cfg.DomainCandidatesPath)
	if err != nil {
		log.Fatal("Failed to load domain candidates:", err)
	}
	log.Printf("Loaded %s domain candidates from %s", humanize.Comma(int64(len(domain))), cfg.DomainCandidatesPath)

	bg, closeBg, err := loadBackground(cfg)
	if err != nil {
		log.Fatal("Failed to load background distribution:", err)
	}
	if closeBg != nil {
		defer closeBg()
	}
	log.Printf("Background distribution: %s phrases, %s total occurrences",
		humanize.Comma(bg.Count()), humanize.Comma(int64(bg.Total())))

	scoreCfg := scorer.Config{
		Method:           scorer.Method(cfg.Method),
		MinSalience:      cfg.MinSalience,
		MinDomainCount:   cfg.MinDomainCount,
		AssignPhraseIDs:  cfg.AssignPhraseIDs,
		StartingPhraseID: cfg.StartingPhraseID,
	}

	scored, stats, err := scorer.Score(domain, bg, scoreCfg)
	if err != nil {
		log.Fatal("Scoring failed:", err)
	}

	if err := writeScoredPhrases(cfg.OutputPath, scored); err != nil {
		log.Fatal("Failed to write scored phrase table:", err)
	}

	scorer.PrintStats(os.Stderr, stats)
	log.Printf("Wrote %s scored phrases to %s", humanize.Comma(int64(len(scored))), cfg.OutputPath)
}

// loadBackground picks between the SQLite-backed store and the default
// in-memory table depending on whether the config names a SQLite path
// (SPEC_FULL §4.2, "optional background-count store"). The returned close
// func is nil for the in-memory path.
func loadBackground(cfg *config.ScoreConfig) (scorer.BackgroundSource, func(), error) {
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(context.Background(), cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	if cfg.BackgroundCandidatesPath == "" {
		return scorer.NewMemoryBackground(nil), nil, nil
	}

	rows, err := scorer.LoadTable(cfg.BackgroundCandidatesPath)
	if err != nil {
		return nil, nil, err
	}
	return scorer.NewMemoryBackground(rows), nil, nil
}

func writeScoredPhrases(path string, phrases []scorer.ScoredPhrase) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, p := range phrases {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return w.Flush()
}
