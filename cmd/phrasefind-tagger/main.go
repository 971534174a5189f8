package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/cognicore/phrasefind/pkg/phrasefind/config"
	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
	"github.com/cognicore/phrasefind/pkg/phrasefind/pipeline"
	"github.com/cognicore/phrasefind/pkg/phrasefind/tagger"
)

func main() {
	configPath := flag.String("config", "", "Tagger YAML config path (required)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.LoadTaggerConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	handle := matcher.New()
	if err := handle.LoadPaths(cfg.AutomatonPath, cfg.PayloadsPath, cfg.ManifestPath, cfg.VocabPath); err != nil {
		log.Fatal("Failed to load artifact set:", err)
	}
	log.Printf("Loaded artifact set with %d patterns", handle.Stats().NumPatterns)

	t := tagger.New(handle, tagger.Config{
		Policy:   matcher.Policy(cfg.Policy),
		MaxSpans: cfg.MaxSpans,
		Label:    cfg.Label,
	})

	if cfg.Postgres != nil {
		sink, err := pipeline.OpenSpanSink(pipeline.PostgresSinkConfig{
			DSN:       cfg.Postgres.DSN,
			TableName: cfg.Postgres.TableName,
		})
		if err != nil {
			log.Fatal("Failed to open Postgres span sink:", err)
		}
		defer sink.Close()
		t.Export = func(doc tagger.TaggedDocument) error {
			return sink.Write(context.Background(), doc)
		}
		log.Printf("Exporting spans to Postgres table %s", cfg.Postgres.TableName)
	}

	var stats tagger.Stats

	switch {
	case cfg.Kafka != nil:
		log.Printf("Tagging documents from kafka topic %s", cfg.Kafka.Topic)
		out, err := os.Create(cfg.OutputPath)
		if err != nil {
			log.Fatal("Failed to create output file:", err)
		}
		defer out.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var docs []corpus.Doc
		err = pipeline.KafkaDocStream(ctx, pipeline.KafkaSourceConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, func(d corpus.Doc) error {
			docs = append(docs, d)
			return nil
		})
		if err != nil {
			log.Fatal("Kafka document stream failed:", err)
		}

		buf, err := docsToJSONLReader(docs)
		if err != nil {
			log.Fatal("Failed to buffer kafka-sourced documents:", err)
		}
		if cfg.Workers > 1 {
			stats, err = t.RunPool(ctx, buf, out, cfg.Workers)
		} else {
			stats, err = t.Run(buf, out)
		}
		if err != nil {
			log.Fatal("Tagging failed:", err)
		}

	default:
		if cfg.CorpusPath == "" {
			log.Fatal("corpusPath is required when kafka is not configured")
		}
		log.Printf("Tagging documents from %s", cfg.CorpusPath)

		in, err := os.Open(cfg.CorpusPath)
		if err != nil {
			log.Fatal("Failed to open corpus:", err)
		}
		defer in.Close()

		out, err := os.Create(cfg.OutputPath)
		if err != nil {
			log.Fatal("Failed to create output file:", err)
		}
		defer out.Close()

		if cfg.Workers > 1 {
			stats, err = t.RunPool(context.Background(), in, out, cfg.Workers)
		} else {
			stats, err = t.Run(in, out)
		}
		if err != nil {
			log.Fatal("Tagging failed:", err)
		}
	}

	tagger.PrintStats(os.Stderr, stats)
	log.Printf("Wrote tagged corpus to %s", cfg.OutputPath)
}

// docsToJSONLReader re-serializes a Kafka-sourced document batch back into
// the corpus package's line-delimited JSON format so it can flow through the
// same Run/RunPool entry points the file-backed corpus path uses.
func docsToJSONLReader(docs []corpus.Doc) (*bytes.Reader, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
	}
	return bytes.NewReader(buf.Bytes()), nil
}
