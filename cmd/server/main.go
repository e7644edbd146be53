package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/sfohq/sop-assistant/internal/adapter/ai"
	"github.com/sfohq/sop-assistant/internal/adapter/store"
	"github.com/sfohq/sop-assistant/internal/adapter/tasks"
	"github.com/sfohq/sop-assistant/internal/audit"
	"github.com/sfohq/sop-assistant/internal/handler"
	"github.com/sfohq/sop-assistant/internal/index"
	"github.com/sfohq/sop-assistant/internal/middleware"
	"github.com/sfohq/sop-assistant/internal/port"
	"github.com/sfohq/sop-assistant/internal/service"
	"github.com/sfohq/sop-assistant/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting SOP assistant",
		"port", cfg.Port,
		"embed_model", cfg.EmbedModel,
		"chat_model", cfg.ChatModel,
		"store_backend", cfg.StoreBackend,
		"min_confidence", cfg.MinConfidence,
	)

	// ── Snapshot store ───────────────────────────────────────────────────
	var snapshots port.SnapshotStore
	switch cfg.StoreBackend {
	case "postgres":
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		snapshots = pgStore
	default:
		snapshots = store.NewFileStore(cfg.VectorStorePath)
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	provider, err := ai.NewProvider(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.ChatModel)
	if err != nil {
		slog.Error("failed to create AI provider", "error", err)
		os.Exit(1)
	}

	chunker, err := index.NewChunker(cfg.MaxTokens, cfg.OverlapTokens)
	if err != nil {
		slog.Error("failed to create chunker", "error", err)
		os.Exit(1)
	}

	auditLog := audit.NewLogger(cfg.AuditLogPath)

	// ── Services ─────────────────────────────────────────────────────────
	embedder := service.NewEmbedder(provider, cfg.BatchSize, cfg.MaxRetries, cfg.RetryBaseDelay, cfg.ProviderTimeout)
	ingestService := service.NewIngestService(chunker, embedder, snapshots, cfg.StoreBackend, cfg.EmbedModel, cfg.SOPSourceName)
	retrievalService := service.NewRetrievalService(snapshots, embedder)
	gate := service.NewConfidenceGate(float32(cfg.MinConfidence))
	answerService := service.NewAnswerService(retrievalService, gate, provider, cfg.ProviderTimeout)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // ingestion embeds the whole corpus
	})

	app.Use(recover.New())
	app.Use(middleware.RequestAudit(auditLog))

	// Health check
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "app": cfg.AppName})
	})

	sopHandler := handler.NewSOPHandler(ingestService, retrievalService, answerService, auditLog, cfg.SOPPath, cfg.DefaultTopK)
	sopHandler.Register(app)

	// Intake requires a task sink; without a Todoist token the route stays off.
	if cfg.TodoistToken != "" {
		sink, err := tasks.NewTodoist(cfg.TodoistToken, cfg.TodoistProject)
		if err != nil {
			slog.Error("failed to create task sink", "error", err)
			os.Exit(1)
		}
		intakeService := service.NewIntakeService(answerService, sink, cfg.DefaultTopK, cfg.SOPChecklist)
		handler.NewIntakeHandler(intakeService, auditLog).Register(app)
	} else {
		slog.Warn("TODOIST_API_TOKEN not set, /intake disabled")
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
