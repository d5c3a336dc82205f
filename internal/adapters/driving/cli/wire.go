package cli

import (
	"fmt"

	"github.com/perch-labs/perch/internal/adapters/driven/config/file"
	"github.com/perch-labs/perch/internal/adapters/driven/embedding/openai"
	"github.com/perch-labs/perch/internal/adapters/driven/index/chroma"
	"github.com/perch-labs/perch/internal/adapters/driven/storage/memory"
	"github.com/perch-labs/perch/internal/adapters/driven/storage/sqlite"
	"github.com/perch-labs/perch/internal/chunker"
	"github.com/perch-labs/perch/internal/connectors/ghost"
	"github.com/perch-labs/perch/internal/core/ports/driven"
	"github.com/perch-labs/perch/internal/core/ports/driving"
	"github.com/perch-labs/perch/internal/core/services"
)

// Injected services. Commands read these; tests replace them.
var (
	library    driving.Library
	reconciler driving.Reconciler
	states     driven.SyncStateStore
	appConfig  *file.Config
)

// ensureServices builds the service graph from the config file unless
// one has already been injected. The returned closer releases any
// resources opened during wiring and is safe to call once.
func ensureServices() (func() error, error) {
	if library != nil && reconciler != nil {
		return func() error { return nil }, nil
	}

	cfg, err := file.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	appConfig = cfg

	resolver, err := services.NewResolver(cfg.Ghost.APIURL)
	if err != nil {
		return nil, err
	}

	source, err := ghost.NewSource(ghost.Config{
		APIURL:            cfg.Ghost.APIURL,
		AdminAPIKey:       cfg.Ghost.AdminAPIKey,
		PageSize:          cfg.Ghost.PageSize,
		RequestsPerSecond: cfg.Ghost.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring ghost client: %w", err)
	}

	embedder, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring embedding service: %w", err)
	}

	index, err := chroma.NewStore(chroma.Config{
		BaseURL:    cfg.Chroma.BaseURL,
		APIKey:     cfg.Chroma.APIKey,
		Tenant:     cfg.Chroma.Tenant,
		Database:   cfg.Chroma.Database,
		Collection: cfg.Chroma.Collection,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("configuring index store: %w", err)
	}

	closer := func() error { return nil }

	if cfg.Storage.Backend == "memory" {
		states = memory.NewSyncStateStore()
	} else {
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening state database: %w", err)
		}
		closer = store.Close
		states = store.SyncStateStore()
	}

	opts := []services.ReconcilerOption{services.WithStateStore(states)}

	if cfg.Sync.Concurrency > 0 {
		opts = append(opts, services.WithApplyConcurrency(cfg.Sync.Concurrency))
	}
	if cfg.Sync.ChunkSize > 0 || cfg.Sync.ChunkOverlap > 0 {
		var chunkOpts []chunker.Option
		if cfg.Sync.ChunkSize > 0 {
			chunkOpts = append(chunkOpts, chunker.WithChunkSize(cfg.Sync.ChunkSize))
		}
		if cfg.Sync.ChunkOverlap > 0 {
			chunkOpts = append(chunkOpts, chunker.WithOverlap(cfg.Sync.ChunkOverlap))
		}
		opts = append(opts, services.WithSplitter(chunker.New(chunkOpts...)))
	}

	reconciler = services.NewReconciler(source, index, resolver, opts...)
	library = services.NewLibrary(source, index, resolver)

	return closer, nil
}
