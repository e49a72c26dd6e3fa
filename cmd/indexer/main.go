// Command indexer starts the index-build service.
//
// The service consumes staged page records from Kafka into per-shard
// corpus directories, periodically rebuilds every shard's on-disk index
// from its corpus, announces completed builds on Kafka, and exposes an
// admin RPC surface (Index.Rebuild, Index.Stats, Index.Health) the
// gateway fronts as HTTP admin endpoints.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/proto"
)

// indexCompleteEvent is published after every successful build so query
// processes reload their searchers and invalidate stale caches.
type indexCompleteEvent struct {
	DocsIndexed int       `json:"docs_indexed"`
	Partitions  int       `json:"partitions"`
	CompletedAt time.Time `json:"completed_at"`
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"num_shards", cfg.Indexer.NumShards,
		"source", cfg.Index.Source,
		"data_dir", cfg.Index.DataDir,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	router, err := shard.NewRouter(cfg.Index, cfg.Indexer.NumShards, m)
	if err != nil {
		slog.Error("failed to create shard router", "error", err)
		os.Exit(1)
	}
	defer router.Close()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, document statuses will not be tracked", "error", err)
		db = nil
	} else {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer completeProducer.Close()

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	batchCollector := collector.NewBatchCollector(analyticsProducer, 100, 5*time.Second)
	batchCollector.Start(ctx)
	defer batchCollector.Close()

	rebuild := func(force bool) (*proto.RebuildResponse, error) {
		stats, err := router.BuildAll(ctx, force)
		if err != nil {
			return nil, err
		}
		if db != nil {
			if err := consumer.MarkIndexed(ctx, db.DB); err != nil {
				slog.Error("failed to mark staged documents indexed", "error", err)
			}
		}
		event := kafka.Event{Key: "build", Value: indexCompleteEvent{
			DocsIndexed: stats.DocsIndexed,
			Partitions:  stats.PartitionFiles,
			CompletedAt: time.Now().UTC(),
		}}
		if err := completeProducer.Publish(ctx, event); err != nil {
			slog.Error("failed to announce completed build", "error", err)
		}
		slog.Info("build complete",
			"docs_indexed", stats.DocsIndexed,
			"partitions", stats.PartitionFiles,
			"spills", stats.SpillFiles,
			"elapsed", stats.Elapsed,
		)
		batchCollector.Track("build", analytics.IndexEvent{
			Type:        analytics.EventIndexBuild,
			DocsIndexed: stats.DocsIndexed,
			Partitions:  stats.PartitionFiles,
			SpillFiles:  stats.SpillFiles,
			LatencyMs:   stats.Elapsed.Milliseconds(),
			Timestamp:   time.Now().UTC(),
		})
		return &proto.RebuildResponse{
			Success:     true,
			Message:     "build complete",
			DocsIndexed: int64(stats.DocsIndexed),
			ElapsedMs:   stats.Elapsed.Milliseconds(),
		}, nil
	}

	// Initial build: forced when REBUILD is set, otherwise only when no
	// ready index was found on disk.
	if cfg.Index.Rebuild || !router.Ready() {
		if _, err := rebuild(cfg.Index.Rebuild); err != nil {
			slog.Error("initial build failed", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("existing indexes loaded, skipping initial build")
	}

	rpcServer := grpc.NewServer()
	rpcServer.Register("Index.Rebuild", func(_ context.Context, raw json.RawMessage) (any, error) {
		var req proto.RebuildRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decoding rebuild request: %w", err)
		}
		return rebuild(req.Force)
	})
	rpcServer.Register("Index.Stats", func(_ context.Context, raw json.RawMessage) (any, error) {
		resp := proto.StatsResponse{}
		for id, engine := range router.Engines() {
			stat := proto.ShardStat{
				ShardID:        int32(id),
				State:          engine.State().String(),
				DocCount:       engine.DocCount(),
				PartitionCount: engine.PartitionCount(),
				StagedDocs:     engine.StagedDocs(),
			}
			resp.TotalDocs += stat.DocCount
			resp.TotalPartitions += stat.PartitionCount
			resp.Shards = append(resp.Shards, stat)
		}
		return &resp, nil
	})
	rpcServer.Register("Index.Health", func(_ context.Context, _ json.RawMessage) (any, error) {
		status := "SERVING"
		if !router.Ready() {
			status = "NOT_SERVING"
		}
		return &proto.HealthCheckResponse{Status: status}, nil
	})
	go func() {
		if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.Indexer.RPCPort)); err != nil {
			slog.Error("rpc server error", "error", err)
		}
	}()
	defer rpcServer.Stop()

	// Fold newly staged documents into a rebuild on a fixed cadence.
	go func() {
		ticker := time.NewTicker(cfg.Indexer.RebuildInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if router.StagedDocs() == 0 {
					continue
				}
				if _, err := rebuild(false); err != nil {
					slog.Error("periodic rebuild failed", "error", err)
				}
			}
		}
	}()

	handler := consumer.HandleMessage(router, sqlDB(db))
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, handler)
	indexConsumer := consumer.New(kafkaConsumer)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
		"rebuild_interval", cfg.Indexer.RebuildInterval,
	)

	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}

// sqlDB unwraps the optional postgres client for handlers that take a
// bare *sql.DB.
func sqlDB(c *postgres.Client) *sql.DB {
	if c == nil {
		return nil
	}
	return c.DB
}
