package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/adapters/catalogstore"
	"github.com/yogateria/supportbot/internal/adapters/chatlog"
	"github.com/yogateria/supportbot/internal/adapters/embedding"
	"github.com/yogateria/supportbot/internal/adapters/llm"
	"github.com/yogateria/supportbot/internal/adapters/orderapi"
	"github.com/yogateria/supportbot/internal/adapters/vectordb"
	"github.com/yogateria/supportbot/internal/config"
	"github.com/yogateria/supportbot/internal/domain/entities"
	"github.com/yogateria/supportbot/internal/domain/ports"
	"github.com/yogateria/supportbot/internal/domain/usecases"
	httpserver "github.com/yogateria/supportbot/internal/infrastructure/http"
)

// app holds the wired components shared by the serve, chat and ingest
// commands.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	products *catalogstore.ProductFile
	orders   *catalogstore.OrderFile
	catalog  []entities.Product
	embedder ports.EmbeddingService
	store    ports.VectorStore
	chatLog  ports.ChatLogStore
	pipeline *usecases.ChatPipeline
	ingest   *usecases.IngestUseCase

	// retrieval is the health prober for the vector backend, nil when
	// the in-memory index is in use.
	retrieval httpserver.Pinger

	// memoryStore is true when no Qdrant endpoint is configured and
	// retrieval runs off an in-process index that must be filled at
	// startup.
	memoryStore bool
}

// buildApp wires every adapter. Record files and the chat database are
// best-effort: a missing source logs a warning and the matching feature
// degrades instead of blocking startup.
func buildApp(cfg *config.Config, logger *zap.Logger) *app {
	sugar := logger.Sugar()

	products := catalogstore.NewProductFile(cfg.Data.ProductsPath)
	var catalog []entities.Product
	if err := products.Reload(); err != nil {
		sugar.Warnw("catalog unavailable", "path", cfg.Data.ProductsPath, "error", err)
	} else if loaded, err := products.Products(context.Background()); err == nil {
		catalog = loaded
	}

	carts := catalogstore.NewCartFile(cfg.Data.CartsPath)
	if err := carts.Reload(); err != nil {
		sugar.Warnw("cart data unavailable", "path", cfg.Data.CartsPath, "error", err)
	}

	orders := catalogstore.NewOrderFile(cfg.Data.OrdersPath)
	if err := orders.Reload(); err != nil {
		sugar.Warnw("order data unavailable", "path", cfg.Data.OrdersPath, "error", err)
	}

	embedder := embedding.NewHFAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Token, logger)

	var store ports.VectorStore
	var retrieval httpserver.Pinger
	memoryStore := cfg.Retrieval.QdrantURL == ""
	if memoryStore {
		sugar.Warnw("no Qdrant endpoint configured, using in-memory retrieval")
		store = vectordb.NewInMemoryStore()
	} else {
		qdrant := vectordb.NewQdrantStore(cfg.Retrieval.QdrantURL, cfg.Retrieval.Collection, logger)
		store = qdrant
		retrieval = qdrant
	}

	var chatLogStore ports.ChatLogStore
	if sqlite, err := chatlog.NewSQLiteStore(cfg.Data.SQLitePath); err != nil {
		sugar.Warnw("chat history unavailable", "path", cfg.Data.SQLitePath, "error", err)
	} else {
		chatLogStore = sqlite
	}

	var remote ports.RemoteOrderClient
	if cfg.OrderAPI.BaseURL != "" {
		remote = orderapi.NewClient(cfg.OrderAPI.BaseURL, cfg.OrderAPI.PublishableKey, logger)
	}

	resolver := usecases.NewResolver(carts, orders, remote, logger)
	resolver.LowTotalThreshold = cfg.Pricing.LowTotalThreshold

	model := llm.NewOpenRouterAdapter(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens)

	lookup, titles := usecases.BuildProductLookup(catalog, cfg.Server.StoreBaseURL)
	pipeline := usecases.NewChatPipeline(
		embedder, store, model, chatLogStore,
		resolver, usecases.DefaultPatterns(),
		usecases.NewComposer("", cfg.Memory.TokenBudget),
		usecases.NewCardExtractor(lookup, titles),
		usecases.BuildPriceSummary(catalog, cfg.Pricing.SummaryDepth),
		cfg.Retrieval.TopK, logger,
	)

	return &app{
		cfg:         cfg,
		log:         logger,
		products:    products,
		orders:      orders,
		catalog:     catalog,
		embedder:    embedder,
		store:       store,
		chatLog:     chatLogStore,
		pipeline:    pipeline,
		ingest:      usecases.NewIngestUseCase(embedder, store, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, logger),
		retrieval:   retrieval,
		memoryStore: memoryStore,
	}
}

// reloadCatalog re-reads the product export and re-indexes it.
func (a *app) reloadCatalog(ctx context.Context) (int, error) {
	if err := a.products.Reload(); err != nil {
		return 0, err
	}
	catalog, err := a.products.Products(ctx)
	if err != nil {
		return 0, err
	}
	a.catalog = catalog
	return a.ingest.IngestProducts(ctx, catalog)
}
