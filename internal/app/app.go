// Package app builds the application container from configuration. Every
// capability is constructed once here and injected into the services.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/auth"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragbot/internal/config"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/core/services"
	"github.com/custodia-labs/ragbot/internal/httpclient"
	"github.com/custodia-labs/ragbot/internal/logger"
	"github.com/custodia-labs/ragbot/internal/normalisers"
	"github.com/custodia-labs/ragbot/internal/postprocessors/chunker"
)

// Options tune how the container is built.
type Options struct {
	// Dir holds the identity file, prompts and local data. Empty means
	// ~/.ragbot.
	Dir string

	// SkipPing builds AI services without checking connectivity.
	SkipPing bool
}

// App holds the wired services.
type App struct {
	Config *config.Config

	Documents *services.DocumentService
	Chat      *services.ChatService
	Sessions  *services.SessionService
	Auth      *services.AuthService

	Index *vectorindex.Index

	// Warnings are non-fatal problems met while building, such as a
	// re-ranker that could not be created.
	Warnings []string

	ai       *ai.InitResult
	sessions driven.SessionStore
	identity auth.Settings
}

// New validates cfg and builds every service. The caller must Close the
// returned App.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := resolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	authSvc, identity, err := newAuth(cfg, dir)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Auth: authSvc, identity: identity}

	httpOpts := HTTPOptions(cfg)
	aiResult, err := ai.Init(ctx, ai.Options{
		Embedding:   cfg.EmbeddingSettings(),
		LLM:         cfg.LLMSettings(),
		Rerank:      cfg.RerankSettings(),
		CacheTTL:    time.Duration(cfg.Embedding.CacheTTL),
		HTTPOptions: httpOpts,
		SkipPing:    opts.SkipPing,
	})
	if err != nil {
		return nil, err
	}
	a.ai = aiResult
	a.Warnings = append(a.Warnings, aiResult.Warnings...)

	a.Index, err = vectorindex.New(ctx, vectorConfig(cfg, dir, httpOpts), aiResult.EmbeddingService)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sessions, err = openSessionStore(ctx, cfg, dir)
	if err != nil {
		a.Close()
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"), services.DefaultPrompts())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open prompt store: %w", err)
	}

	rag := cfg.RAGSettings()
	splitter := chunker.New(chunker.WithChunkSize(rag.ChunkSize), chunker.WithOverlap(rag.ChunkOverlap))

	a.Documents = services.NewDocumentService(normalisers.NewDefaultRegistry(), splitter, a.Index)
	a.Chat = services.NewChatService(a.Index, aiResult.LLMService, aiResult.Reranker, prompts, rag)
	a.Sessions = services.NewSessionService(a.sessions)

	logger.FromContext(ctx).Debug("application built",
		zap.String("vector_backend", a.Index.Backend()),
		zap.String("sessions_backend", cfg.Sessions.Backend),
		zap.String("llm", aiResult.LLMService.ModelName()),
		zap.String("embedding", aiResult.EmbeddingService.ModelName()),
		zap.Bool("rerank", aiResult.Reranker != nil),
		zap.Bool("remote_identity", identity.IsRemote()))

	return a, nil
}

// NewAuth builds only the sign-in service, for commands that must work
// before the AI services are configured.
func NewAuth(cfg *config.Config, opts Options) (*services.AuthService, error) {
	dir, err := resolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	svc, _, err := newAuth(cfg, dir)
	return svc, err
}

func newAuth(cfg *config.Config, dir string) (*services.AuthService, auth.Settings, error) {
	settings := auth.Settings{URL: cfg.Identity.URL, APIKey: cfg.Identity.APIKey}
	store, err := file.NewIdentityStore(filepath.Join(dir, "identity.toml"))
	if err != nil {
		return nil, settings, fmt.Errorf("open identity store: %w", err)
	}
	provider := auth.NewIdentityProvider(settings, HTTPOptions(cfg)...)
	return services.NewAuthService(provider, store), settings, nil
}

// UserID returns the tenant for local commands. Without a remote identity
// provider everything runs as domain.LocalUserID; otherwise the saved
// sign-in is required.
func (a *App) UserID(ctx context.Context) (string, error) {
	return ResolveUserID(ctx, a.identity.IsRemote(), a.Auth)
}

// ResolveUserID implements App.UserID for callers holding only the auth
// service.
func ResolveUserID(ctx context.Context, remote bool, authSvc *services.AuthService) (string, error) {
	if !remote {
		return domain.LocalUserID, nil
	}
	identity, err := authSvc.Current(ctx)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

// RemoteIdentity reports whether requests must carry a verified token.
func (a *App) RemoteIdentity() bool {
	return a.identity.IsRemote()
}

// Close releases the index, session store and AI services.
func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	if a.ai != nil {
		a.ai.Close()
	}
	return errors.Join(errs...)
}

// HTTPOptions maps the [retry] section onto connector options.
func HTTPOptions(cfg *config.Config) []httpclient.Option {
	return []httpclient.Option{
		httpclient.WithRetry(
			retry.Attempts(max(cfg.Retry.Attempts, 1)),
			retry.Delay(time.Duration(cfg.Retry.Delay)),
			retry.MaxDelay(time.Duration(cfg.Retry.MaxDelay)),
		),
		httpclient.WithRequestLogging(),
	}
}

func vectorConfig(cfg *config.Config, dir string, httpOpts []httpclient.Option) vectorindex.Config {
	local := cfg.Vector.LocalPath
	if local == "" {
		local = filepath.Join(dir, "data")
	}
	return vectorindex.Config{
		Backend:       cfg.VectorBackend(),
		QdrantURL:     cfg.Vector.QdrantURL,
		QdrantAPIKey:  cfg.Vector.QdrantAPIKey,
		Collection:    cfg.Vector.Collection,
		PostgresDSN:   cfg.Vector.PostgresDSN,
		LocalPath:     local,
		BatchSize:     cfg.Vector.BatchSize,
		RateLimit:     cfg.Vector.RateLimit,
		RetryAttempts: cfg.Retry.Attempts,
		RetryDelay:    time.Duration(cfg.Retry.Delay),
		HTTPOptions:   httpOpts,
	}
}

func openSessionStore(ctx context.Context, cfg *config.Config, dir string) (driven.SessionStore, error) {
	switch domain.SessionBackend(cfg.Sessions.Backend) {
	case domain.SessionBackendMemory:
		return memory.NewSessionStore(), nil
	case domain.SessionBackendPostgres:
		store, err := postgres.Open(ctx, cfg.Sessions.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres sessions: %w", err)
		}
		return store, nil
	default:
		path := cfg.Sessions.Path
		if path == "" {
			path = filepath.Join(dir, "data")
		}
		db, err := sqlite.NewStore(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite sessions: %w", err)
		}
		return &sqliteSessions{SessionStore: db.SessionStore(), db: db}, nil
	}
}

// sqliteSessions closes the database handle with the session store.
type sqliteSessions struct {
	driven.SessionStore
	db *sqlite.Store
}

func (s *sqliteSessions) Close() error {
	return s.db.Close()
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return config.Dir()
}
