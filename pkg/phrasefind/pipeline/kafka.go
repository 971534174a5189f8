// Package pipeline wires the optional streaming transports (Kafka corpus
// input, Redis reload notification) into the batch pipeline, following the
// wrapper shape of the broader corpus's pkg/kafka and pkg/redis packages.
// Every transport here is additive: its absence must never prevent the file
// contract in spec §6 from working standalone (SPEC_FULL §6, §7).
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
)

// KafkaSourceConfig configures a Kafka-backed corpus.Doc stream (SPEC_FULL
// §4.4, "Tagger stream source"; also usable by the miner).
type KafkaSourceConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaDocStream reads newline-JSON corpus.Doc messages from a Kafka topic,
// following Adithya's pkg/kafka.Consumer FetchMessage/CommitMessages loop,
// and calls fn once per document in delivery order. It runs until ctx is
// cancelled or fn returns an error.
func KafkaDocStream(ctx context.Context, cfg KafkaSourceConfig, fn corpus.VisitFunc) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	logger := slog.Default().With("component", "kafka-corpus-source", "topic", cfg.Topic)
	logger.Info("kafka corpus stream started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("kafka corpus stream stopping", "reason", ctx.Err())
			return nil
		default:
		}

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		var d corpus.Doc
		if err := json.Unmarshal(msg.Value, &d); err != nil {
			return fmt.Errorf("kafka message at offset %d: malformed json: %w", msg.Offset, err)
		}
		if err := fn(d); err != nil {
			return fmt.Errorf("kafka message at offset %d: %w", msg.Offset, err)
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error("failed to commit kafka message", "offset", msg.Offset, "error", err)
		}
	}
}
