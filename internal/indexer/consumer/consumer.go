// Package consumer reads ingestion events from Kafka and stages the
// carried page records into the shard router's corpus directories, where
// the next index build picks them up.
package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/kafka"
)

// IndexConsumer wraps a Kafka consumer to drive document staging.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that stages each ingest
// event's page record into its owning shard's corpus directory. If db is
// non-nil, the document status moves from PENDING to STAGED in PostgreSQL
// after a successful write.
func HandleMessage(router *shard.Router, db *sql.DB) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		shardID := router.ShardFor(event.URL)
		logger.Debug("staging ingest event",
			"doc_id", event.DocumentID,
			"url", event.URL,
			"shard_id", shardID,
		)

		if err := router.StageDocument(event.URL, event.Content); err != nil {
			updateDocStatus(ctx, db, event.DocumentID, "FAILED", logger)
			return fmt.Errorf("staging document %s in shard %d: %w", event.DocumentID, shardID, err)
		}

		updateDocStatus(ctx, db, event.DocumentID, "STAGED", logger)

		logger.Info("document staged",
			"doc_id", event.DocumentID,
			"shard_id", shardID,
		)
		return nil
	}
}

// MarkIndexed moves every STAGED document to INDEXED after a successful
// build. If db is nil, the update is silently skipped.
func MarkIndexed(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`UPDATE documents SET status = 'INDEXED', indexed_at = NOW() WHERE status = 'STAGED'`,
	)
	if err != nil {
		return fmt.Errorf("marking staged documents indexed: %w", err)
	}
	return nil
}

// updateDocStatus updates the document's status in PostgreSQL. If db is
// nil, the update is silently skipped.
func updateDocStatus(ctx context.Context, db *sql.DB, docID, status string, logger *slog.Logger) {
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx,
		`UPDATE documents SET status = $1 WHERE id = $2`,
		status, docID,
	)
	if err != nil {
		logger.Error("failed to update document status",
			"doc_id", docID,
			"status", status,
			"error", err,
		)
	}
}
