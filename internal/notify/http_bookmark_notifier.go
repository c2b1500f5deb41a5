package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
)

// LinkNotifier pushes a freshly posted link to an external service. Calls are
// fire-and-forget from the ledger's point of view; failures only surface in
// the log.
type LinkNotifier interface {
	NotifyPosted(ctx context.Context, record *models.LinkRecord) error
}

type linkPostedMessage struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Nick     string    `json:"nick"`
	Channel  string    `json:"channel"`
	Tags     []string  `json:"tags,omitempty"`
	PostedAt time.Time `json:"postedAt"`
}

// HTTPBookmarkNotifier posts links to an external bookmarking service over
// the resilient HTTP client.
type HTTPBookmarkNotifier struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

func NewHTTPBookmarkNotifier(client *resty.Client, baseURL string, logger *slog.Logger) *HTTPBookmarkNotifier {
	return &HTTPBookmarkNotifier{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (n *HTTPBookmarkNotifier) NotifyPosted(ctx context.Context, record *models.LinkRecord) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(messageFor(record)).
		Post(n.baseURL + "/bookmarks")
	if err != nil {
		return fmt.Errorf("posting bookmark: %w", err)
	}

	if resp.StatusCode() >= 300 {
		return &errors.HTTPError{StatusCode: resp.StatusCode()}
	}

	n.logger.Debug("bookmark pushed",
		"url", record.URL,
		"status", resp.StatusCode(),
	)

	return nil
}

func messageFor(record *models.LinkRecord) linkPostedMessage {
	return linkPostedMessage{
		URL:      record.URL,
		Title:    record.Title,
		Nick:     record.Nick,
		Channel:  record.Channel,
		Tags:     record.Tags,
		PostedAt: record.CreatedAt,
	}
}
