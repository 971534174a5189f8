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
	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
	"github.com/cognicore/phrasefind/pkg/phrasefind/miner"
	"github.com/cognicore/phrasefind/pkg/phrasefind/pipeline"
)

func main() {
	configPath := flag.String("config", "", "Miner YAML config path (required)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.LoadMineConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	mineCfg := miner.Config{MinN: cfg.MinN, MaxN: cfg.MaxN, MinCount: cfg.MinCount}
	if err := mineCfg.Validate(); err != nil {
		log.Fatal("Invalid config:", err)
	}

	counter := miner.New(mineCfg)

	if cfg.Kafka != nil {
		log.Printf("Mining documents from kafka topic %s", cfg.Kafka.Topic)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		err = pipeline.KafkaDocStream(ctx, pipeline.KafkaSourceConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, func(d corpus.Doc) error {
			return counter.AddDocument(d.Tokens)
		})
		if err != nil {
			log.Fatal("Kafka corpus stream failed:", err)
		}
	} else {
		if cfg.CorpusPath == "" {
			log.Fatal("corpusPath is required when kafka is not configured")
		}
		log.Printf("Mining documents from %s", cfg.CorpusPath)
		err = corpus.Stream(cfg.CorpusPath, func(d corpus.Doc) error {
			return counter.AddDocument(d.Tokens)
		})
		if err != nil {
			log.Fatal("Failed to mine corpus:", err)
		}
	}

	candidates, stats := counter.Result()

	if err := writeCandidates(cfg.OutputPath, candidates); err != nil {
		log.Fatal("Failed to write candidate table:", err)
	}

	miner.PrintStats(os.Stderr, mineCfg, stats)
	log.Printf("Wrote %s candidates to %s", humanize.Comma(int64(len(candidates))), cfg.OutputPath)
}

func writeCandidates(path string, candidates []miner.Candidate) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range candidates {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return w.Flush()
}
