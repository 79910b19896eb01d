package bootstrap

import (
	"context"
	"fmt"

	"llmontreal/internal/api"
	"llmontreal/internal/app"
	"llmontreal/internal/config"
	"llmontreal/internal/pkg/logger"
	redisClient "llmontreal/internal/platform/redis"
	"llmontreal/internal/store"
)

type App struct {
	Config    *config.Config
	Store     store.Store
	Client    *api.Client
	Auth      *app.AuthService
	Documents *app.DocumentService
	Theme     *app.ThemeService
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// the transport asks auth for the token at request time
	var auth *app.AuthService
	tokens := api.TokenFunc(func(ctx context.Context) (string, error) {
		return auth.Token(ctx)
	})
	client := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		ChatModel: cfg.API.ChatModel,
		Timeout:   cfg.APITimeout(),
		Transport: api.NewAuthTransport(nil, tokens),
	})
	auth = app.NewAuthService(ctx, client, st)

	logger.Debugf("%s (%s) using %s store, api %s", cfg.App.Name, cfg.App.Env, cfg.Store.Backend, client.BaseURL())
	return &App{
		Config:    cfg,
		Store:     st,
		Client:    client,
		Auth:      auth,
		Documents: app.NewDocumentService(client, app.NewSearchService()),
		Theme:     app.NewThemeService(ctx, st, app.SystemPrefersDark),
	}, nil
}

func (a *App) NewUploadTask() *app.UploadTask {
	return app.NewUploadTask(a.Client, a.Config.Upload.MaxSizeBytes)
}

func (a *App) NewAnalysisSession(documentID string, listener app.SessionListener) *app.AnalysisSession {
	return app.NewAnalysisSession(a.Client, documentID, app.SessionOptions{
		PollInterval:    a.Config.PollInterval(),
		PollMaxAttempts: a.Config.Summary.PollMaxAttempts,
		Listener:        listener,
	})
}

func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("close store failed: %w", err)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client, cfg.Store.Redis.KeyPrefix, cfg.RedisTTL()), nil
	default:
		st, err := store.NewFileStore(cfg.Store.StateFile)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}
