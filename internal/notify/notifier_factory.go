package notify

import (
	"log/slog"
	"strings"

	"github.com/chankeeper/chankeeper/internal/common/httputil"
	"github.com/chankeeper/chankeeper/internal/config"
	"github.com/chankeeper/chankeeper/internal/domain/errors"
)

type NotifierType string

const (
	HTTPNotifier  NotifierType = "HTTP"
	KafkaNotifier NotifierType = "KAFKA"
)

type NotifierFactory struct {
	config *config.Config
	logger *slog.Logger
}

func NewNotifierFactory(config *config.Config, logger *slog.Logger) *NotifierFactory {
	return &NotifierFactory{
		config: config,
		logger: logger,
	}
}

// CreateNotifier builds the configured transport; HTTP gets the Kafka
// producer as fallback.
func (f *NotifierFactory) CreateNotifier() (LinkNotifier, error) {
	notifierType := NotifierType(strings.ToUpper(f.config.NotifierTransport))

	f.logger.Info("creating link notifier",
		"type", notifierType,
	)

	brokers := strings.Split(f.config.KafkaBrokers, ",")

	switch notifierType {
	case HTTPNotifier:
		client := httputil.CreateResilientHTTPClient(f.config, f.logger, "bookmark_service")
		primary := NewHTTPBookmarkNotifier(client, f.config.BookmarkServiceURL, f.logger)
		secondary := NewKafkaLinkNotifier(brokers, f.config.TopicLinkPosted, f.logger)

		return NewFallbackLinkNotifier(primary, secondary, f.logger), nil
	case KafkaNotifier:
		return NewKafkaLinkNotifier(brokers, f.config.TopicLinkPosted, f.logger), nil
	default:
		return nil, &errors.ErrUnknownNotifierTransport{Transport: string(notifierType)}
	}
}
