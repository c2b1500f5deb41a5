package memory_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/internal/tell/repository/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMessage(id int64) *models.TellMessage {
	return &models.TellMessage{
		ID:       id,
		From:     "Alice",
		To:       "Bob",
		Body:     "hello",
		QueuedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestTellRepository_AddAndGetAll(t *testing.T) {
	repo := memory.NewTellRepository(filepath.Join(t.TempDir(), "tells.json"), testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, newMessage(3)))
	require.NoError(t, repo.Add(ctx, newMessage(1)))
	require.NoError(t, repo.Add(ctx, newMessage(2)))

	msgs, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Queue order is id order.
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.Equal(t, int64(2), msgs[1].ID)
	assert.Equal(t, int64(3), msgs[2].ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTellRepository_Update(t *testing.T) {
	repo := memory.NewTellRepository(filepath.Join(t.TempDir(), "tells.json"), testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, newMessage(1)))

	msg := newMessage(1)
	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	msg.Delivered = true
	msg.DeliveredAt = &now

	require.NoError(t, repo.Update(ctx, msg))

	msgs, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.True(t, msgs[0].Delivered)

	err = repo.Update(ctx, newMessage(99))
	assert.ErrorIs(t, err, &errors.ErrTellNotFound{})
}

func TestTellRepository_Remove(t *testing.T) {
	repo := memory.NewTellRepository(filepath.Join(t.TempDir(), "tells.json"), testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, newMessage(1)))
	require.NoError(t, repo.Remove(ctx, 1))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = repo.Remove(ctx, 1)
	assert.ErrorIs(t, err, &errors.ErrTellNotFound{})
}

func TestTellRepository_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tells.json")
	ctx := context.Background()

	repo := memory.NewTellRepository(path, testLogger())

	msg := newMessage(1)
	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	msg.Delivered = true
	msg.DeliveredAt = &now
	msg.Notified = true

	require.NoError(t, repo.Add(ctx, msg))
	require.NoError(t, repo.Add(ctx, newMessage(2)))

	reopened := memory.NewTellRepository(path, testLogger())

	msgs, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, msg, msgs[0])
	assert.Equal(t, "queued", msgs[1].Status())
}

func TestTellRepository_CorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tells.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	repo := memory.NewTellRepository(path, testLogger())

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
