package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/pkg/cache"
	"github.com/noah-isme/canvas-gradebook/pkg/config"
	"github.com/noah-isme/canvas-gradebook/pkg/database"
)

// StructureStore is a course structure repository that owns a connection.
type StructureStore interface {
	Save(ctx context.Context, structure *models.CourseStructure) (int64, error)
	Load(ctx context.Context, courseID string) (*models.CourseStructure, error)
	Backend() string
	Close() error
}

// OpenStructureStore connects the backend named by cfg.Store.Backend.
func OpenStructureStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (StructureStore, error) {
	switch cfg.Store.Backend {
	case "", config.StoreBackendMemory:
		return NewMemoryStructureRepository(), nil
	case config.StoreBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStructureRepository(client, cfg.Store.KeyPrefix, logger), nil
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := NewPostgresStructureRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
