// Package main is the entry point for the item service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/itemservice/internal/config"
	"github.com/vyrodovalexey/itemservice/internal/database"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/server"
	"github.com/vyrodovalexey/itemservice/internal/service"
	"github.com/vyrodovalexey/itemservice/internal/store"
	"github.com/vyrodovalexey/itemservice/internal/store/derived"
	"github.com/vyrodovalexey/itemservice/internal/store/mapper"
	"github.com/vyrodovalexey/itemservice/internal/store/named"
	"github.com/vyrodovalexey/itemservice/internal/store/orm"
	"github.com/vyrodovalexey/itemservice/internal/store/pgstore"
	"github.com/vyrodovalexey/itemservice/internal/store/querybuilder"
	"github.com/vyrodovalexey/itemservice/internal/store/simpleinsert"
	"github.com/vyrodovalexey/itemservice/internal/store/sqltemplate"
)

var errUnknownRepository = errors.New("unknown repository")

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("profile", cfg.Profile),
		zap.String("repository", cfg.Repository),
	)

	ctx := context.Background()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open repository", zap.String("repository", cfg.Repository), zap.Error(err))
		return 1
	}
	defer b.close()

	svc := service.NewItemService(b.repo, b.tx, logger)

	if cfg.SeedData() {
		seeded, err := seed(ctx, svc)
		if err != nil {
			logger.Error("failed to seed test data", zap.Error(err))
			return 1
		}
		if seeded {
			logger.Info("test data seeded")
		} else {
			logger.Info("repository already holds items, skipping seed")
		}
	}

	srv := server.New(cfg, logger, svc)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// backend is the repository selected at startup together with the
// transaction boundary the service runs its operations in.
type backend struct {
	repo  store.ItemRepository
	tx    service.Transactor
	close func()
}

// openBackend builds exactly one repository strategy from cfg.Repository.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	switch {
	case cfg.Repository == config.RepositoryMemory:
		return &backend{
			repo:  store.Instrument(store.NewMemoryStore(), cfg.Repository, logger),
			tx:    service.NoTx{},
			close: func() {},
		}, nil

	case cfg.Repository == config.RepositoryPostgres:
		pg, err := pgstore.Open(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return &backend{
			repo:  store.Instrument(pg, cfg.Repository, logger),
			tx:    pg,
			close: pg.Close,
		}, nil

	case cfg.UsesSQLite():
		db, err := database.Open(ctx, cfg.DatabasePath, logger)
		if err != nil {
			return nil, err
		}
		repo, err := sqliteRepository(cfg, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("sqlite database opened", zap.String("path", cfg.DatabasePath))
		return &backend{
			repo: store.Instrument(repo, cfg.Repository, logger),
			tx:   db,
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("closing database", zap.Error(err))
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownRepository, cfg.Repository)
	}
}

func sqliteRepository(cfg *config.Config, db *database.DB) (store.ItemRepository, error) {
	switch cfg.Repository {
	case config.RepositorySQLTemplate:
		return sqltemplate.New(db), nil
	case config.RepositoryNamed:
		return named.New(db), nil
	case config.RepositorySimpleInsert:
		return simpleinsert.New(db), nil
	case config.RepositoryORM:
		return orm.New(db), nil
	case config.RepositoryDerived:
		return derived.New(db), nil
	case config.RepositoryQueryBuilder:
		return querybuilder.New(orm.New(db)), nil
	case config.RepositoryMapper:
		file, err := loadMapperFile(cfg.MapperPath)
		if err != nil {
			return nil, err
		}
		return mapper.New(db, file), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownRepository, cfg.Repository)
	}
}

func loadMapperFile(path string) (*mapper.File, error) {
	if path == "" {
		return mapper.Default()
	}
	return mapper.LoadFile(path)
}

// seedItems are inserted at startup under the local profile.
var seedItems = []model.Item{
	model.NewItem("itemA", 10000, 10),
	model.NewItem("itemB", 20000, 20),
}

// seed inserts seedItems into an empty repository. It reports false and
// writes nothing when any item is already stored, so restarting on a
// persistent database file does not duplicate the rows.
func seed(ctx context.Context, svc *service.ItemService) (bool, error) {
	existing, err := svc.FindItems(ctx, model.ItemSearch{})
	if err != nil {
		return false, fmt.Errorf("checking existing items: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, item := range seedItems {
		if _, err := svc.Save(ctx, &item); err != nil {
			return false, fmt.Errorf("seeding %s: %w", item.ItemName, err)
		}
	}
	return true, nil
}
