package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"forgerelay/internal/bootstrap/config"
	"forgerelay/internal/bootstrap/database"
	"forgerelay/internal/bootstrap/logging"
	domainrelay "forgerelay/internal/domain/relay"
	"forgerelay/internal/httpapi"
	"forgerelay/internal/infrastructure/forge"
	"forgerelay/internal/infrastructure/objectstore"
	sqliterepo "forgerelay/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "forgerelay/internal/infrastructure/persistence/sqlite/uow"
	"forgerelay/internal/ports"
	relayusecase "forgerelay/internal/usecase/relay"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(sqliterepo.NewEventRepository, fx.As(new(ports.EventRepository))),
	),
	fx.Provide(
		fx.Annotate(sqliterepo.NewRollingCommentRepository, fx.As(new(ports.RollingCommentRepository))),
	),
	fx.Provide(
		fx.Annotate(sqliterepo.NewEvidenceRepository, fx.As(new(ports.EvidenceRepository))),
	),
	fx.Provide(
		fx.Annotate(sqliterepo.NewApprovalQueueRepository, fx.As(new(ports.ApprovalQueueRepository))),
	),
	fx.Provide(
		fx.Annotate(sqliteuow.NewUnitOfWork, fx.As(new(ports.UnitOfWork))),
	),
	fx.Provide(provideObjectStore),
	fx.Provide(provideLabelRules),
	fx.Provide(provideForgeClientFactory),
	fx.Provide(relayusecase.NewService),
	fx.Provide(provideV1Client),
	fx.Provide(provideHTTPAPI),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideObjectStore(cfg config.Config) ports.ObjectStore {
	return objectstore.NewLocalStore(cfg.Relay.EvidenceRoot)
}

// provideLabelRules parses the configured label-rules document into a
// LabelRuleStore and, when the rules come from a file on disk, starts an
// fsnotify watch that reparses and swaps the store's contents on every
// write — so editing the rules file takes effect without a restart.
// Invalid JSON degrades to an empty rule set rather than a startup
// failure, matching the "rules become no-ops, never a fatal error"
// requirement.
func provideLabelRules(lc fx.Lifecycle, ctx context.Context, cfg config.Config) *domainrelay.LabelRuleStore {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	store := domainrelay.NewLabelRuleStore(loadLabelRules(logCtx, cfg))

	if cfg.Relay.LabelRulesJSON == "" && cfg.Relay.LabelRulesPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			logging.Warn(logCtx, "failed to start label rules watcher, hot-reload disabled", slog.Any("err", err))
			return store
		}

		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				if err := watcher.Add(cfg.Relay.LabelRulesPath); err != nil {
					logging.Warn(logCtx, "failed to watch label rules file, hot-reload disabled", slog.String("path", cfg.Relay.LabelRulesPath), slog.Any("err", err))
					return nil
				}
				go watchLabelRules(logCtx, watcher, cfg, store)
				return nil
			},
			OnStop: func(context.Context) error {
				return watcher.Close()
			},
		})
	}

	return store
}

func loadLabelRules(logCtx context.Context, cfg config.Config) *domainrelay.LabelRuleSet {
	raw := []byte(cfg.Relay.LabelRulesJSON)
	if len(raw) == 0 && cfg.Relay.LabelRulesPath != "" {
		data, err := os.ReadFile(cfg.Relay.LabelRulesPath)
		if err != nil {
			logging.Warn(logCtx, "failed to read label rules file, using empty rule set", slog.String("path", cfg.Relay.LabelRulesPath), slog.Any("err", err))
			raw = nil
		} else {
			raw = data
		}
	}

	set, err := domainrelay.ParseLabelRules(raw)
	if err != nil {
		logging.Warn(logCtx, "failed to parse label rules, using empty rule set", slog.Any("err", err))
		set, _ = domainrelay.ParseLabelRules(nil)
	}
	return set
}

// watchLabelRules reparses and swaps the rules file into store on every
// write/create event, until watcher is closed. Editors that replace the
// file via rename-over (vim, some deploy tooling) drop the inode from the
// watch, so a Remove/Rename event re-adds it rather than going silent.
func watchLabelRules(logCtx context.Context, watcher *fsnotify.Watcher, cfg config.Config, store *domainrelay.LabelRuleStore) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				store.Set(loadLabelRules(logCtx, cfg))
				logging.Info(logCtx, "label rules reloaded", slog.String("path", cfg.Relay.LabelRulesPath))
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if err := watcher.Add(cfg.Relay.LabelRulesPath); err != nil {
					logging.Warn(logCtx, "failed to re-watch label rules file after rename", slog.Any("err", err))
					return
				}
				store.Set(loadLabelRules(logCtx, cfg))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn(logCtx, "label rules watcher error", slog.Any("err", err))
		}
	}
}

// provideForgeClientFactory returns a constructor that mints a fresh
// installation-scoped forge client on first use within each request.
func provideForgeClientFactory(cfg config.Config) (relayusecase.ForgeClientFactory, error) {
	keyPEM := []byte(cfg.Relay.PrivateKeyPEM)
	if len(keyPEM) == 0 && cfg.Relay.PrivateKeyPath != "" {
		data, err := os.ReadFile(cfg.Relay.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read relay.private_key_path: %w", err)
		}
		keyPEM = data
	}
	if len(keyPEM) == 0 {
		return nil, fmt.Errorf("relay private key is required (RELAY_PRIVATE_KEY_PEM or RELAY_PRIVATE_KEY_PATH)")
	}

	privateKey, err := forge.ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse relay private key: %w", err)
	}

	creds := forge.Credentials{
		AppID:          cfg.Relay.AppID,
		InstallationID: cfg.Relay.InstallationID,
		PrivateKey:     privateKey,
		APIBaseURL:     cfg.Relay.APIBaseURL,
	}

	return func(ctx context.Context) (ports.ForgeClient, error) {
		return forge.NewClient(creds)
	}, nil
}

// provideV1Client builds the long-lived PAT-authenticated client backing
// the v1 convenience routes. Returns nil when no token is configured,
// which disables those routes entirely.
func provideV1Client(ctx context.Context, cfg config.Config) (*forge.Client, error) {
	if cfg.Relay.V1Token == "" {
		return nil, nil
	}
	return forge.NewPATClient(ctx, cfg.Relay.V1Token, cfg.Relay.APIBaseURL)
}

func provideHTTPAPI(svc *relayusecase.Service, v1Client *forge.Client, cfg config.Config) *httpapi.API {
	return httpapi.New(svc, v1Client, cfg.Relay.SharedSecret, cfg.Relay.V1Token)
}
