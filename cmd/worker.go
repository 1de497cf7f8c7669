// Package cmd provides command-line interface functionality for the ruleindex application.
/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ruleindex/internal/adapter/inbound/messaging"
	"ruleindex/internal/adapter/outbound/blob"
	natsout "ruleindex/internal/adapter/outbound/messaging"
	"ruleindex/internal/adapter/outbound/openai"
	"ruleindex/internal/adapter/outbound/repository"
	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/application/service"
	"ruleindex/internal/application/worker"
	"ruleindex/internal/config"
	"ruleindex/internal/port/inbound"
	"ruleindex/internal/version"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// newWorkerCmd creates and returns the worker command.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start the background worker service",
		Long: `Start the background worker service that processes image jobs from NATS JetStream.

The worker service:
- Consumes image processing jobs from the processing queue
- Downloads image bytes from blob storage
- Runs AI extraction and stores per-channel embeddings
- Records per-image outcomes against the owning batch
- Republishes failed jobs while retry budget remains

Configuration is loaded from config files and environment variables.`,
		Run: func(_ *cobra.Command, _ []string) {
			runWorkerService()
		},
	}
}

// runWorkerService starts and runs the worker service.
func runWorkerService() {
	cfg := GetConfig()

	slogger.InfoNoCtx("Starting worker service", slogger.Fields{
		"concurrency": cfg.Worker.Concurrency,
		"queue_group": cfg.Worker.QueueGroup,
	})

	ctx := context.Background()

	meterProvider, err := worker.SetupMeterProvider(ctx, "ruleindex-worker", version.Get().Version)
	if err != nil {
		slogger.ErrorNoCtx("Failed to set up metrics", slogger.Fields{"error": err.Error()})
		return
	}
	defer func() {
		if shutdownErr := meterProvider.Shutdown(ctx); shutdownErr != nil {
			slogger.ErrorNoCtx("Failed to shut down metrics", slogger.Fields{"error": shutdownErr.Error()})
		}
	}()

	dbPool, err := repository.NewConnectionPool(ctx, cfg.Database)
	if err != nil {
		slogger.ErrorNoCtx("Failed to create database connection pool", slogger.Fields{"error": err.Error()})
		return
	}
	defer dbPool.Close()

	workerService, publisher, err := createWorkerService(cfg, dbPool)
	if err != nil {
		slogger.ErrorNoCtx("Failed to create worker service", slogger.Fields{"error": err.Error()})
		return
	}
	defer publisher.Close()

	if err := workerService.Start(ctx); err != nil {
		slogger.ErrorNoCtx("Failed to start worker service", slogger.Fields{"error": err.Error()})
		return
	}

	waitForShutdownAndStop(workerService)
}

// createWorkerService creates and configures the worker service with all dependencies.
func createWorkerService(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
) (*worker.WorkerService, *natsout.NATSJobPublisher, error) {
	batchRepository := repository.NewPostgreSQLImageBatchRepository(dbPool)
	imageRepository := repository.NewPostgreSQLGameImageRepository(dbPool)
	vectorRepository := repository.NewPostgreSQLGameVectorRepository(dbPool)

	blobStorage, err := blob.NewAzureBlobStorage(blob.StorageConfig{
		AccountURL:     cfg.Blob.AccountURL,
		Container:      cfg.Blob.Container,
		SASToken:       cfg.Blob.SASToken,
		RequestTimeout: cfg.Blob.RequestTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	aiClient, err := openai.NewClient(openai.ClientConfig{
		Endpoint:            cfg.OpenAI.Endpoint,
		APIKey:              cfg.OpenAI.APIKey,
		VisionDeployment:    cfg.OpenAI.VisionDeployment,
		EmbeddingDeployment: cfg.OpenAI.EmbeddingDeployment,
		APIVersion:          cfg.OpenAI.APIVersion,
		Timeout:             cfg.OpenAI.Timeout,
		MaxRetries:          cfg.OpenAI.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	publisher, err := natsout.NewNATSJobPublisher(cfg.NATS)
	if err != nil {
		return nil, nil, err
	}

	batchService := service.NewBatchLifecycleService(
		batchRepository,
		imageRepository,
		publisher,
		cfg.Processing.MaxRetries,
	)

	metrics, err := worker.NewJobMetrics()
	if err != nil {
		publisher.Close()
		return nil, nil, err
	}

	jobProcessor := worker.NewImageJobProcessor(
		worker.JobProcessorConfig{AnalysisTimeout: cfg.Processing.AnalysisTimeout},
		imageRepository,
		vectorRepository,
		blobStorage,
		aiClient,
		publisher,
		batchService,
		metrics,
	)

	// One pull consumer per concurrency slot; JetStream balances
	// deliveries across them.
	consumerConfig := messaging.ConsumerConfig{
		Subject:       natsout.ProcessingSubject,
		QueueGroup:    cfg.Worker.QueueGroup,
		DurableName:   cfg.Worker.DurableName,
		AckWait:       cfg.Processing.AckWait,
		MaxDeliver:    cfg.Processing.MaxRetries + 1,
		MaxAckPending: cfg.Processing.MaxAckPending,
		JobTimeout:    cfg.Worker.JobTimeout,
	}

	consumerList := make([]inbound.MessageConsumer, 0, cfg.Worker.Concurrency)
	for range cfg.Worker.Concurrency {
		consumer, consErr := messaging.NewNATSConsumer(consumerConfig, cfg.NATS, jobProcessor)
		if consErr != nil {
			publisher.Close()
			return nil, nil, consErr
		}
		consumerList = append(consumerList, consumer)
	}

	workerService, err := worker.NewWorkerService(worker.WorkerServiceConfig{
		Concurrency: cfg.Worker.Concurrency,
		QueueGroup:  cfg.Worker.QueueGroup,
		JobTimeout:  cfg.Worker.JobTimeout,
	}, consumerList)
	if err != nil {
		publisher.Close()
		return nil, nil, err
	}

	return workerService, publisher, nil
}

// waitForShutdownAndStop waits for shutdown signal and stops the service gracefully.
func waitForShutdownAndStop(workerService *worker.WorkerService) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	slogger.InfoNoCtx("Received shutdown signal, initiating graceful shutdown", slogger.Fields{
		"signal": sig.String(),
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := workerService.Stop(shutdownCtx); err != nil {
		slogger.ErrorNoCtx("Error during worker service shutdown", slogger.Fields{"error": err.Error()})
	} else {
		slogger.InfoNoCtx("Worker service shutdown completed successfully", nil)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newWorkerCmd())
}
