// Package ingestion defines the request/response types and Kafka event schemas
// used by the document ingestion pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
// URL is the document's corpus identity (the Path Mapper keys on it);
// Content is the raw HTML body the text pipeline tokenizes.
type IngestRequest struct {
	URL            string `json:"url"`
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotency_key"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ShardID    int    `json:"shard_id"`
}

// IngestEvent is the Kafka message payload produced after a document is
// persisted and staged for the next index build.
type IngestEvent struct {
	DocumentID string    `json:"document_id"`
	URL        string    `json:"url"`
	Content    string    `json:"content"`
	ShardID    int       `json:"shard_id"`
	IngestedAt time.Time `json:"ingested_at"`
}
