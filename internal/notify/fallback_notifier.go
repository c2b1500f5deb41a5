package notify

import (
	"context"
	"log/slog"

	"github.com/chankeeper/chankeeper/internal/domain/models"
)

// FallbackLinkNotifier tries the primary transport and falls back to the
// secondary. The original error is kept when both fail.
type FallbackLinkNotifier struct {
	primary   LinkNotifier
	secondary LinkNotifier
	logger    *slog.Logger
}

func NewFallbackLinkNotifier(primary, secondary LinkNotifier, logger *slog.Logger) *FallbackLinkNotifier {
	return &FallbackLinkNotifier{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (n *FallbackLinkNotifier) NotifyPosted(ctx context.Context, record *models.LinkRecord) error {
	err := n.primary.NotifyPosted(ctx, record)
	if err == nil {
		return nil
	}

	n.logger.Warn("primary notifier transport failed, falling back",
		"primaryError", err,
		"url", record.URL,
	)

	fallbackErr := n.secondary.NotifyPosted(ctx, record)
	if fallbackErr != nil {
		return err
	}

	n.logger.Info("link notification sent via fallback transport",
		"url", record.URL,
	)

	return nil
}
