package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chankeeper/chankeeper/internal/common/metrics"
	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/internal/tell/repository"
)

const queuedAtLayout = "2006-01-02 15:04"

// TellService is the deferred message queue. Messages only move forward
// (queued -> delivered -> notified) and leave the queue by explicit delete or
// by the expiry sweep; every mutation is persisted by the repository before
// the call returns.
type TellService struct {
	repo   repository.TellRepository
	logger *slog.Logger

	queueMax int
	maxAge   time.Duration

	mu     sync.Mutex
	lastID int64

	now func() time.Time
}

func NewTellService(repo repository.TellRepository, queueMax int, maxAge time.Duration, logger *slog.Logger) *TellService {
	return &TellService{
		repo:     repo,
		logger:   logger,
		queueMax: queueMax,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Enqueue stores a message for a recipient who is not around. Fails with
// QueueFull once the configured maximum is reached.
func (s *TellService) Enqueue(ctx context.Context, from, to, body string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Expired messages should not hold a slot against the cap.
	s.sweepLocked(ctx)

	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}

	if count >= s.queueMax {
		return 0, &errors.ErrQueueFull{Max: s.queueMax}
	}

	// Time-derived ids stay sortable; bump on same-nanosecond collisions.
	id := s.now().UnixNano()
	if id <= s.lastID {
		id = s.lastID + 1
	}

	s.lastID = id

	msg := &models.TellMessage{
		ID:       id,
		From:     from,
		To:       to,
		Body:     body,
		QueuedAt: s.now(),
	}

	if err := s.repo.Add(ctx, msg); err != nil {
		return 0, err
	}

	metrics.TellsQueuedTotal.Inc()
	metrics.TellQueueSize.Set(float64(count + 1))

	return id, nil
}

// Deliver fires when a nick becomes visible. Queued messages for the nick are
// handed over; messages the nick sent that have since been delivered produce
// a confirmation. A self-reminder is only released by a passive presence
// event (join, nick change), never by the sender's own chatter.
func (s *TellService) Deliver(ctx context.Context, nick string, passive bool) []models.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to read tell queue", "error", err)
		return nil
	}

	var out []models.Delivery

	for _, msg := range all {
		switch {
		case !msg.Delivered && strings.EqualFold(msg.To, nick):
			selfTell := strings.EqualFold(msg.From, msg.To)
			if selfTell && !passive {
				continue
			}

			now := s.now()
			msg.Delivered = true
			msg.DeliveredAt = &now

			if selfTell {
				msg.Notified = true
				out = append(out, models.Delivery{
					To:   msg.To,
					Text: fmt.Sprintf("%s: reminder: %s (queued %s)", msg.To, msg.Body, msg.QueuedAt.Format(queuedAtLayout)),
				})
			} else {
				out = append(out, models.Delivery{
					To:   msg.To,
					Text: fmt.Sprintf("%s: %s left you a message: %s (queued %s)", msg.To, msg.From, msg.Body, msg.QueuedAt.Format(queuedAtLayout)),
				})
			}

			if err := s.repo.Update(ctx, msg); err != nil {
				s.logger.Error("failed to persist delivered tell", "id", msg.ID, "error", err)
			}

			metrics.TellsDeliveredTotal.Inc()

		case msg.Delivered && !msg.Notified && strings.EqualFold(msg.From, nick):
			msg.Notified = true
			out = append(out, models.Delivery{
				To:   msg.From,
				Text: fmt.Sprintf("%s: your message to %s was delivered", msg.From, msg.To),
			})

			if err := s.repo.Update(ctx, msg); err != nil {
				s.logger.Error("failed to persist notified tell", "id", msg.ID, "error", err)
			}
		}
	}

	s.sweepLocked(ctx)

	return out
}

// View lists messages. all=true is the operator view of the whole queue;
// otherwise only messages the requester sent or is to receive, with bodies.
func (s *TellService) View(ctx context.Context, requester models.Identity, all bool) ([]*models.TellMessage, error) {
	if all && !requester.Privileged {
		return nil, &errors.ErrPermissionDenied{Nick: requester.Nick}
	}

	msgs, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if all {
		return msgs, nil
	}

	var out []*models.TellMessage

	for _, msg := range msgs {
		if strings.EqualFold(msg.From, requester.Nick) || strings.EqualFold(msg.To, requester.Nick) {
			out = append(out, msg)
		}
	}

	return out, nil
}

// Delete removes one message by id, or with id=0 and deleteAll=true every
// delivered message of the requester. NotFound and NotYours are distinct so
// the caller can word the reply.
func (s *TellService) Delete(ctx context.Context, requester models.Identity, id int64, deleteAll bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deleteAll {
		return s.deleteAllLocked(ctx, requester)
	}

	msgs, err := s.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	for _, msg := range msgs {
		if msg.ID != id {
			continue
		}

		if !s.mayDelete(msg, requester) {
			return 0, &errors.ErrTellNotYours{ID: id, Nick: requester.Nick}
		}

		if err := s.repo.Remove(ctx, id); err != nil {
			return 0, err
		}

		s.updateQueueGauge(ctx)

		return 1, nil
	}

	return 0, &errors.ErrTellNotFound{ID: id}
}

// Sweep removes every message older than the configured maximum age,
// regardless of delivery state. Idempotent; safe to invoke redundantly.
func (s *TellService) Sweep(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(ctx)
}

func (s *TellService) deleteAllLocked(ctx context.Context, requester models.Identity) (int, error) {
	msgs, err := s.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, msg := range msgs {
		if !msg.Delivered || !s.owns(msg, requester) {
			continue
		}

		if err := s.repo.Remove(ctx, msg.ID); err != nil {
			s.logger.Error("failed to remove tell", "id", msg.ID, "error", err)
			continue
		}

		removed++
	}

	s.updateQueueGauge(ctx)

	return removed, nil
}

// A queued message may only be withdrawn by its sender (or an operator); a
// delivered one by either party.
func (s *TellService) mayDelete(msg *models.TellMessage, requester models.Identity) bool {
	if requester.Privileged {
		return true
	}

	if msg.Delivered {
		return s.owns(msg, requester)
	}

	return strings.EqualFold(msg.From, requester.Nick)
}

func (s *TellService) owns(msg *models.TellMessage, requester models.Identity) bool {
	return strings.EqualFold(msg.From, requester.Nick) || strings.EqualFold(msg.To, requester.Nick)
}

func (s *TellService) sweepLocked(ctx context.Context) int {
	msgs, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to read tell queue for sweep", "error", err)
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0

	for _, msg := range msgs {
		if !msg.QueuedAt.Before(cutoff) {
			continue
		}

		if err := s.repo.Remove(ctx, msg.ID); err != nil {
			s.logger.Error("failed to expire tell", "id", msg.ID, "error", err)
			continue
		}

		removed++
	}

	if removed > 0 {
		metrics.TellsExpiredTotal.Add(float64(removed))
		s.logger.Info("expired tells", "count", removed)
	}

	s.updateQueueGauge(ctx)

	return removed
}

func (s *TellService) updateQueueGauge(ctx context.Context) {
	if count, err := s.repo.Count(ctx); err == nil {
		metrics.TellQueueSize.Set(float64(count))
	}
}
