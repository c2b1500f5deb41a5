package dispatcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/chankeeper/chankeeper/internal/common/metrics"
	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/internal/ledger/parser"
)

type LedgerService interface {
	Post(ctx context.Context, op *models.Op, id models.Identity) (int, bool, error)

	EditTitle(ctx context.Context, index int, title string, id models.Identity) error

	EditURL(ctx context.Context, index int, url string, id models.Identity) error

	ReassignAuthor(ctx context.Context, index int, nick string, id models.Identity) error

	MutateTags(ctx context.Context, index int, changes []models.TagChange, id models.Identity) error

	AddComment(ctx context.Context, index int, text string, id models.Identity) (int, error)

	EditComment(ctx context.Context, index, comment int, text string, id models.Identity) error

	ReassignCommentAuthor(ctx context.Context, index, comment int, nick string, id models.Identity) error

	DeleteRecord(ctx context.Context, index int, id models.Identity) error

	DeleteComment(ctx context.Context, index, comment int, id models.Identity) error

	GetComment(index, comment int) (*models.Comment, error)

	RenderRecord(ctx context.Context, index int) (string, error)
}

type TellService interface {
	Enqueue(ctx context.Context, from, to, body string) (int64, error)

	Deliver(ctx context.Context, nick string, passive bool) []models.Delivery

	View(ctx context.Context, requester models.Identity, all bool) ([]*models.TellMessage, error)

	Delete(ctx context.Context, requester models.Identity, id int64, deleteAll bool) (int, error)
}

var (
	tellRe   = regexp.MustCompile(`^tell\s+(\S+)\s+(.+)$`)
	rmtellRe = regexp.MustCompile(`^rmtell\s+(\d+|all)$`)
)

type opHandler func(ctx context.Context, op *models.Op, id models.Identity) (string, error)

// Dispatcher routes one incoming line at a time: the ledger grammar first,
// then the tell commands, with everything else falling through as ordinary
// chat. Every line also counts as the speaker becoming visible, which drives
// tell delivery.
type Dispatcher struct {
	ledger    LedgerService
	tells     TellService
	limiter   *NickRateLimiter
	logger    *slog.Logger
	channel   string
	operators map[string]bool

	handlers map[models.OpKind]opHandler
}

func NewDispatcher(
	ledger LedgerService,
	tells TellService,
	limiter *NickRateLimiter,
	channel string,
	operators []string,
	logger *slog.Logger,
) *Dispatcher {
	d := &Dispatcher{
		ledger:    ledger,
		tells:     tells,
		limiter:   limiter,
		logger:    logger,
		channel:   channel,
		operators: make(map[string]bool, len(operators)),
	}

	for _, op := range operators {
		d.operators[strings.ToLower(op)] = true
	}

	d.handlers = map[models.OpKind]opHandler{
		models.OpPost:            d.handlePost,
		models.OpShowRecord:      d.handleShowRecord,
		models.OpDeleteRecord:    d.handleDeleteRecord,
		models.OpEditTitle:       d.handleEditTitle,
		models.OpEditURL:         d.handleEditURL,
		models.OpReassignAuthor:  d.handleReassignAuthor,
		models.OpAddComment:      d.handleAddComment,
		models.OpMutateTags:      d.handleMutateTags,
		models.OpShowComment:     d.handleShowComment,
		models.OpDeleteComment:   d.handleDeleteComment,
		models.OpReassignComment: d.handleReassignComment,
		models.OpEditComment:     d.handleEditComment,
	}

	return d
}

// HandleMessage processes one spoken line and returns the replies to send.
func (d *Dispatcher) HandleMessage(ctx context.Context, nick, login, text string) []string {
	var replies []string

	// Speaking is an active presence event.
	for _, delivery := range d.tells.Deliver(ctx, nick, false) {
		replies = append(replies, delivery.Text)
	}

	id := d.identity(nick, login)

	if op, ok := parser.Parse(text); ok {
		if !d.allow(nick) {
			return replies
		}

		reply, err := d.handlers[op.Kind](ctx, op, id)
		if err != nil {
			reply = d.errorReply(err, id)
		}

		if reply != "" {
			replies = append(replies, reply)
		}

		return replies
	}

	if reply, ok := d.handleTellCommand(ctx, text, id); ok {
		if !d.allow(nick) {
			return replies
		}

		if reply != "" {
			replies = append(replies, reply)
		}
	}

	return replies
}

// HandlePresence processes a passive presence event (join, nick change).
func (d *Dispatcher) HandlePresence(ctx context.Context, nick string) []string {
	var replies []string

	for _, delivery := range d.tells.Deliver(ctx, nick, true) {
		replies = append(replies, delivery.Text)
	}

	return replies
}

func (d *Dispatcher) identity(nick, login string) models.Identity {
	login = strings.ToLower(login)

	return models.Identity{
		Nick:       nick,
		Login:      login,
		Channel:    d.channel,
		Privileged: d.operators[login],
	}
}

func (d *Dispatcher) allow(nick string) bool {
	if d.limiter == nil || d.limiter.Allow(nick) {
		return true
	}

	metrics.DroppedCommandsTotal.Inc()
	d.logger.Warn("dropped command, rate limit exceeded", "nick", nick)

	return false
}

func (d *Dispatcher) handlePost(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	index, created, err := d.ledger.Post(ctx, op, id)
	if err != nil {
		return "", err
	}

	if !created {
		return fmt.Sprintf("%s: already posted today as L%d", id.Nick, index), nil
	}

	return fmt.Sprintf("L%d", index), nil
}

func (d *Dispatcher) handleShowRecord(ctx context.Context, op *models.Op, _ models.Identity) (string, error) {
	return d.ledger.RenderRecord(ctx, op.Record)
}

func (d *Dispatcher) handleDeleteRecord(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.DeleteRecord(ctx, op.Record, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d deleted", op.Record+1), nil
}

func (d *Dispatcher) handleEditTitle(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.EditTitle(ctx, op.Record, op.Text, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d updated", op.Record+1), nil
}

func (d *Dispatcher) handleEditURL(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.EditURL(ctx, op.Record, op.Text, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d updated", op.Record+1), nil
}

func (d *Dispatcher) handleReassignAuthor(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.ReassignAuthor(ctx, op.Record, op.Text, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d reassigned to %s", op.Record+1, op.Text), nil
}

func (d *Dispatcher) handleAddComment(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	commentIndex, err := d.ledger.AddComment(ctx, op.Record, op.Text, id)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d.%d", op.Record+1, commentIndex), nil
}

func (d *Dispatcher) handleMutateTags(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.MutateTags(ctx, op.Record, op.TagChanges, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d tags updated", op.Record+1), nil
}

func (d *Dispatcher) handleShowComment(_ context.Context, op *models.Op, _ models.Identity) (string, error) {
	comment, err := d.ledger.GetComment(op.Record, op.Comment)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d.%d: %s: %s", op.Record+1, op.Comment+1, comment.Nick, comment.Text), nil
}

func (d *Dispatcher) handleEditComment(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.EditComment(ctx, op.Record, op.Comment, op.Text, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d.%d updated", op.Record+1, op.Comment+1), nil
}

func (d *Dispatcher) handleDeleteComment(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.DeleteComment(ctx, op.Record, op.Comment, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d.%d deleted", op.Record+1, op.Comment+1), nil
}

func (d *Dispatcher) handleReassignComment(ctx context.Context, op *models.Op, id models.Identity) (string, error) {
	if err := d.ledger.ReassignCommentAuthor(ctx, op.Record, op.Comment, op.Text, id); err != nil {
		return "", err
	}

	return fmt.Sprintf("L%d.%d reassigned to %s", op.Record+1, op.Comment+1, op.Text), nil
}

func (d *Dispatcher) handleTellCommand(ctx context.Context, text string, id models.Identity) (string, bool) {
	text = strings.TrimSpace(text)

	if m := tellRe.FindStringSubmatch(text); m != nil {
		_, err := d.tells.Enqueue(ctx, id.Nick, m[1], m[2])
		if err != nil {
			return d.errorReply(err, id), true
		}

		return fmt.Sprintf("%s: I'll pass that on when %s is around", id.Nick, m[1]), true
	}

	if text == "tells" || text == "tells all" {
		msgs, err := d.tells.View(ctx, id, text == "tells all")
		if err != nil {
			return d.errorReply(err, id), true
		}

		return d.renderTells(msgs, id), true
	}

	if m := rmtellRe.FindStringSubmatch(text); m != nil {
		if m[1] == "all" {
			removed, err := d.tells.Delete(ctx, id, 0, true)
			if err != nil {
				return d.errorReply(err, id), true
			}

			return fmt.Sprintf("%s: removed %d tells", id.Nick, removed), true
		}

		tellID, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return "", false
		}

		if _, err := d.tells.Delete(ctx, id, tellID, false); err != nil {
			return d.errorReply(err, id), true
		}

		return fmt.Sprintf("%s: tell %d removed", id.Nick, tellID), true
	}

	return "", false
}

func (d *Dispatcher) renderTells(msgs []*models.TellMessage, id models.Identity) string {
	if len(msgs) == 0 {
		return fmt.Sprintf("%s: no tells", id.Nick)
	}

	var b strings.Builder

	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%d [%s] %s -> %s: %s", msg.ID, msg.Status(), msg.From, msg.To, msg.Body)
	}

	return b.String()
}

// Permission and not-found conditions get a specific reply; everything else
// is logged and kept from the channel.
func (d *Dispatcher) errorReply(err error, id models.Identity) string {
	switch {
	case stderrors.Is(err, &errors.ErrPermissionDenied{}):
		return fmt.Sprintf("%s: you can't do that", id.Nick)
	case stderrors.Is(err, &errors.ErrRecordNotFound{}):
		return fmt.Sprintf("%s: no such record", id.Nick)
	case stderrors.Is(err, &errors.ErrCommentNotFound{}):
		return fmt.Sprintf("%s: no such comment", id.Nick)
	case stderrors.Is(err, &errors.ErrTellNotFound{}):
		return fmt.Sprintf("%s: no such tell", id.Nick)
	case stderrors.Is(err, &errors.ErrTellNotYours{}):
		return fmt.Sprintf("%s: that tell isn't yours", id.Nick)
	case stderrors.Is(err, &errors.ErrQueueFull{}):
		return fmt.Sprintf("%s: the tell queue is full, try again later", id.Nick)
	default:
		d.logger.Error("command failed", "nick", id.Nick, "error", err)
		return ""
	}
}
