package repository_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chankeeper/chankeeper/internal/config"
	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/tell/repository"
)

func TestFactory_Memory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{TellStorageType: config.MemoryStorage, DataDir: t.TempDir()}

	repo, err := repository.NewFactory(nil, cfg, logger).CreateTellRepository()

	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestFactory_UnknownStorageType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{TellStorageType: "CLAY_TABLET"}

	_, err := repository.NewFactory(nil, cfg, logger).CreateTellRepository()

	require.Error(t, err)

	var unknown *errors.ErrUnknownStorageType

	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "CLAY_TABLET", unknown.StorageType)
}
