package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/pkg/atomicfile"
)

const schemaVersion = 1

type fileSchema struct {
	Version  int          `json:"version"`
	Messages []tellSchema `json:"messages"`
}

type tellSchema struct {
	ID          int64      `json:"id"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Body        string     `json:"body"`
	QueuedAt    time.Time  `json:"queuedAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	Delivered   bool       `json:"delivered"`
	Notified    bool       `json:"notified"`
}

// TellRepository keeps the queue in memory and snapshots it to a JSON file on
// every mutation. A missing snapshot is an empty queue; a corrupt one is
// logged and ignored.
type TellRepository struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	tells map[int64]*models.TellMessage
}

func NewTellRepository(path string, logger *slog.Logger) *TellRepository {
	r := &TellRepository{
		path:   path,
		logger: logger,
		tells:  make(map[int64]*models.TellMessage),
	}

	r.load()

	return r
}

func (r *TellRepository) Add(_ context.Context, msg *models.TellMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tells[msg.ID] = msg

	return r.persistLocked()
}

func (r *TellRepository) Update(_ context.Context, msg *models.TellMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tells[msg.ID]; !exists {
		return &errors.ErrTellNotFound{ID: msg.ID}
	}

	r.tells[msg.ID] = msg

	return r.persistLocked()
}

func (r *TellRepository) Remove(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tells[id]; !exists {
		return &errors.ErrTellNotFound{ID: id}
	}

	delete(r.tells, id)

	return r.persistLocked()
}

func (r *TellRepository) GetAll(_ context.Context) ([]*models.TellMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedLocked(), nil
}

func (r *TellRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tells), nil
}

// Ids are time-derived, so id order is queue order.
func (r *TellRepository) sortedLocked() []*models.TellMessage {
	out := make([]*models.TellMessage, 0, len(r.tells))
	for _, msg := range r.tells {
		out = append(out, msg)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (r *TellRepository) persistLocked() error {
	out := fileSchema{Version: schemaVersion}

	for _, msg := range r.sortedLocked() {
		out.Messages = append(out.Messages, tellSchema{
			ID:          msg.ID,
			From:        msg.From,
			To:          msg.To,
			Body:        msg.Body,
			QueuedAt:    msg.QueuedAt,
			DeliveredAt: msg.DeliveredAt,
			Delivered:   msg.Delivered,
			Notified:    msg.Notified,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tell snapshot: %w", err)
	}

	if err := atomicfile.Write(r.path, data, 0o644); err != nil {
		return &errors.ErrPersistence{Path: r.path, Cause: err}
	}

	return nil
}

func (r *TellRepository) load() {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("failed to read tell snapshot, starting empty",
				"path", r.path,
				"error", err,
			)
		}

		return
	}

	var in fileSchema
	if err := json.Unmarshal(data, &in); err != nil {
		r.logger.Error("failed to parse tell snapshot, starting empty",
			"path", r.path,
			"error", err,
		)

		return
	}

	for _, msg := range in.Messages {
		r.tells[msg.ID] = &models.TellMessage{
			ID:          msg.ID,
			From:        msg.From,
			To:          msg.To,
			Body:        msg.Body,
			QueuedAt:    msg.QueuedAt,
			DeliveredAt: msg.DeliveredAt,
			Delivered:   msg.Delivered,
			Notified:    msg.Notified,
		}
	}
}
