package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Dispatcher interface {
	HandleMessage(ctx context.Context, nick, login, text string) []string

	HandlePresence(ctx context.Context, nick string) []string
}

// Poller bridges the chat transport to the dispatcher: one group chat plays
// the channel, a spoken message is an active presence event, and joining the
// chat is a passive one. The core never touches the transport directly.
type Poller struct {
	bot         *tgbotapi.BotAPI
	dispatcher  Dispatcher
	logger      *slog.Logger
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
}

func NewPoller(bot *tgbotapi.BotAPI, dispatcher Dispatcher, logger *slog.Logger) *Poller {
	return &Poller{
		bot:        bot,
		dispatcher: dispatcher,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

func (p *Poller) Start() {
	p.logger.Info("starting Telegram poller")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	p.updatesChan = p.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-p.stopChan:
				p.logger.Info("poller stop signal received")
				return
			case update := <-p.updatesChan:
				p.processUpdate(&update)
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.logger.Info("stopping Telegram poller")
	close(p.stopChan)
}

func (p *Poller) processUpdate(update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var replies []string

	switch {
	case len(msg.NewChatMembers) > 0:
		for _, member := range msg.NewChatMembers {
			replies = append(replies, p.dispatcher.HandlePresence(ctx, nickOf(&member))...)
		}
	case msg.Text != "":
		nick := nickOf(msg.From)
		login := loginOf(msg.From)

		p.logger.Debug("message received",
			"chat_id", chatID,
			"nick", nick,
		)

		replies = p.dispatcher.HandleMessage(ctx, nick, login, msg.Text)
	}

	for _, reply := range replies {
		if err := p.send(chatID, reply); err != nil {
			p.logger.Error("failed to send reply",
				"error", err,
				"chat_id", chatID,
			)
		}
	}
}

func (p *Poller) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := p.bot.Send(msg)

	return err
}

func nickOf(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}

	return user.FirstName
}

// The stable user id stands in for a network login; nicknames can change.
func loginOf(user *tgbotapi.User) string {
	return strconv.FormatInt(user.ID, 10)
}
