package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/core/ports"
	"github.com/docvault/docvault/internal/core/usecase"
	"github.com/docvault/docvault/internal/infrastructure/extractor/local"
	"github.com/docvault/docvault/internal/infrastructure/llm/openai"
	"github.com/docvault/docvault/internal/infrastructure/ocr/edenai"
	"github.com/docvault/docvault/internal/infrastructure/poll"
	"github.com/docvault/docvault/internal/infrastructure/queue/nats"
	"github.com/docvault/docvault/internal/infrastructure/repository/postgres"
	"github.com/docvault/docvault/internal/infrastructure/resilience"
	"github.com/docvault/docvault/internal/infrastructure/storage/s3"
	"github.com/docvault/docvault/internal/text"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	UploadUC  ports.DocumentUploader
	SearchUC  ports.DocumentSearcher
	ExtractUC ports.DocumentProcessor

	embeddings ports.EmbeddingRepository
	storage    ports.ObjectStorage
	executor   *resilience.Executor
	ranking    usecase.RankingPolicy

	closeFn func()
}

// NewAPI wires everything the HTTP server needs. The OCR client is not
// built here: extraction runs on the worker.
func NewAPI(ctx context.Context, cfg config.Config) (*App, error) {
	app, llm, err := newBase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.SearchUC = usecase.NewSearchUseCase(
		llm,
		app.embeddings,
		app.Repo,
		app.ranking,
		cfg.SearchLimit,
		cfg.SearchMinScore,
	)
	return app, nil
}

// NewWorker wires the extraction pipeline on top of the shared base.
func NewWorker(ctx context.Context, cfg config.Config) (*App, error) {
	app, llm, err := newBase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ocrClient, err := edenai.New(edenai.Config{
		BaseURL:  cfg.OCRBaseURL,
		APIKey:   cfg.OCRAPIKey,
		Provider: cfg.OCRProvider,
		Language: cfg.OCRLanguage,
		Timeout:  time.Duration(cfg.OCRRequestTimeoutSec) * time.Second,
		Executor: app.executor,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init ocr client: %w", err)
	}

	chunker := text.NewChunker(cfg.ChunkTargetTokens, cfg.ChunkOverlapTokens)
	indexer := usecase.NewReplaceEmbeddingsUseCase(
		chunker,
		llm,
		app.embeddings,
		app.ranking,
		cfg.EmbedBatchSize,
		time.Duration(cfg.EmbedBatchDelayMilli)*time.Millisecond,
	)

	app.ExtractUC = usecase.NewExtractDocumentUseCase(
		app.Repo,
		app.storage,
		ocrClient,
		llm,
		local.New(),
		indexer,
		time.Duration(cfg.SignedURLTTLSec)*time.Second,
		poll.Config{
			Interval:    time.Duration(cfg.OCRPollIntervalSec) * time.Second,
			MaxAttempts: cfg.OCRPollMaxAttempts,
		},
	)
	return app, nil
}

// newBase wires the dependencies both binaries share.
func newBase(ctx context.Context, cfg config.Config) (*App, *openai.Client, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	embeddings := postgres.NewEmbeddingRepository(db)

	storage, err := s3.New(ctx, s3.Config{
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKeyID,
		SecretKey: cfg.AWSSecretKey,
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init message queue: %w", err)
	}

	llm, err := openai.New(openai.Config{
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		ChatModel:  cfg.LLMChatModel,
		EmbedModel: cfg.LLMEmbedModel,
		Dimensions: cfg.EmbedDimensions,
		Executor:   executor,
	})
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, nil, fmt.Errorf("init llm client: %w", err)
	}

	ranking, err := loadRankingPolicy(cfg.RankingConfigPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, nil, err
	}

	app := &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		embeddings: embeddings,
		storage:    storage,
		executor:   executor,
		ranking:    ranking,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}
	app.UploadUC = usecase.NewUploadDocumentUseCase(repo, embeddings, storage, queue)
	return app, llm, nil
}

func loadRankingPolicy(path string) (usecase.RankingPolicy, error) {
	rc, err := config.LoadRanking(path)
	if err != nil {
		return usecase.RankingPolicy{}, fmt.Errorf("load ranking config: %w", err)
	}
	return usecase.RankingPolicy{
		HighWeight:   rc.Weights.High,
		MediumWeight: rc.Weights.Medium,
		LowWeight:    rc.Weights.Low,
		Keywords:     rc.HighImportanceKeywords,
		LeadingHigh:  rc.LeadingHighChunks,
		TrailingLow:  rc.TrailingLowChunks,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
