package repository

import (
	"log/slog"
	"path/filepath"

	"github.com/chankeeper/chankeeper/internal/config"
	"github.com/chankeeper/chankeeper/internal/database"
	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/tell/repository/memory"
	sqlrepo "github.com/chankeeper/chankeeper/internal/tell/repository/sql"
)

type Factory struct {
	db     *database.PostgresDB
	config *config.Config
	logger *slog.Logger
}

func NewFactory(db *database.PostgresDB, config *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		db:     db,
		config: config,
		logger: logger,
	}
}

func (f *Factory) CreateTellRepository() (TellRepository, error) {
	switch f.config.TellStorageType {
	case config.MemoryStorage:
		f.logger.Info("creating in-memory tell repository")
		return memory.NewTellRepository(filepath.Join(f.config.DataDir, "tells.json"), f.logger), nil
	case config.SQLStorage:
		f.logger.Info("creating SQL tell repository")
		return sqlrepo.NewTellRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownStorageType{StorageType: string(f.config.TellStorageType)}
	}
}
