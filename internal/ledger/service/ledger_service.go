package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/chankeeper/chankeeper/internal/common/metrics"
	"github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/internal/ledger/repository/memory"
)

const dayLayout = "2006-01-02"

type FeedPublisher interface {
	Publish(day string, records []*models.LinkRecord) error

	PublishBacklog(entries []models.BacklogEntry) error

	ArchiveURL(day string) string
}

type SnapshotStore interface {
	Save(day string, records []*models.LinkRecord, backlog []models.BacklogEntry) error

	Load() (string, []*models.LinkRecord, []models.BacklogEntry, error)
}

type ViewCache interface {
	Get(ctx context.Context, key string) (string, bool, error)

	Set(ctx context.Context, key, value string) error

	InvalidateAll(ctx context.Context) error
}

type LinkNotifier interface {
	NotifyPosted(ctx context.Context, record *models.LinkRecord) error
}

// LedgerService owns one channel's link ledger: the active day's record list,
// the backlog of archived days and the rollover between them. All mutations
// are serialized by the mutex and persisted (feed + snapshot) before the
// method returns; a failed write is logged and the in-memory state stands.
type LedgerService struct {
	store     *memory.RecordStore
	snapshot  SnapshotStore
	publisher FeedPublisher
	cache     ViewCache
	notifier  LinkNotifier
	logger    *slog.Logger

	channel     string
	channelTag  string
	defaultTags []string
	backlogMax  int

	mu        sync.Mutex
	activeDay string
	backlog   []models.BacklogEntry

	now func() time.Time
}

func NewLedgerService(
	store *memory.RecordStore,
	snapshot SnapshotStore,
	publisher FeedPublisher,
	cache ViewCache,
	notifier LinkNotifier,
	channel string,
	defaultTags []string,
	backlogMax int,
	logger *slog.Logger,
) *LedgerService {
	s := &LedgerService{
		store:       store,
		snapshot:    snapshot,
		publisher:   publisher,
		cache:       cache,
		notifier:    notifier,
		logger:      logger,
		channel:     channel,
		channelTag:  strings.ToLower(strings.TrimPrefix(channel, "#")),
		defaultTags: defaultTags,
		backlogMax:  backlogMax,
		now:         time.Now,
	}

	day, records, backlog, err := snapshot.Load()
	if err != nil {
		logger.Error("failed to load ledger snapshot, starting empty",
			"error", err,
		)
	}

	if len(records) > 0 {
		store.Replace(records)
	}

	s.backlog = backlog
	s.activeDay = day

	if s.activeDay == "" {
		s.activeDay = s.now().Format(dayLayout)
	}

	return s
}

// Post records a URL for the active day. A URL already present returns the
// existing display index with created=false and changes nothing.
func (s *LedgerService) Post(ctx context.Context, op *models.Op, id models.Identity) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolloverLocked(ctx)

	if index, ok := s.store.FindByURL(op.URL); ok {
		metrics.LedgerPostsTotal.WithLabelValues("duplicate").Inc()
		return index + 1, false, nil
	}

	title := op.Title
	if title == "" {
		title = models.DefaultTitle
	}

	record := &models.LinkRecord{
		URL:       op.URL,
		Title:     title,
		Nick:      id.Nick,
		Login:     id.Login,
		Channel:   s.channel,
		CreatedAt: s.now(),
	}

	for _, tag := range s.defaultTags {
		record.AddTag(tag)
	}

	record.AddTag(s.channelTag)

	for _, tag := range op.Tags {
		record.AddTag(tag)
	}

	index := s.store.Append(record)
	metrics.LedgerPostsTotal.WithLabelValues("created").Inc()

	s.persistLocked(ctx)

	if s.notifier != nil {
		// Fire and forget: external bookmarking services are never awaited.
		posted := record.Clone()

		go func() {
			if err := s.notifier.NotifyPosted(context.Background(), posted); err != nil {
				s.logger.Warn("link notifier failed",
					"url", posted.URL,
					"error", err,
				)
			}
		}()
	}

	return index + 1, true, nil
}

func (s *LedgerService) EditTitle(ctx context.Context, index int, title string, id models.Identity) error {
	return s.editRecord(ctx, index, id, func(r *models.LinkRecord) {
		r.Title = title
	})
}

func (s *LedgerService) EditURL(ctx context.Context, index int, url string, id models.Identity) error {
	return s.editRecord(ctx, index, id, func(r *models.LinkRecord) {
		r.URL = url
	})
}

// ReassignAuthor hands a record to another nick. Operators only.
func (s *LedgerService) ReassignAuthor(ctx context.Context, index int, nick string, id models.Identity) error {
	if !id.Privileged {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.Get(index); !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	s.store.Update(index, func(r *models.LinkRecord) {
		r.Nick = nick
		r.Login = strings.ToLower(nick)
	})

	s.persistLocked(ctx)

	return nil
}

// MutateTags applies a parsed tag expression. Removing the channel's own tag
// is a silent no-op.
func (s *LedgerService) MutateTags(ctx context.Context, index int, changes []models.TagChange, id models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(index)
	if !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	if !canModify(record.Login, id) {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.store.Update(index, func(r *models.LinkRecord) {
		for _, change := range changes {
			if change.Remove {
				if change.Tag == s.channelTag {
					continue
				}

				r.RemoveTag(change.Tag)
			} else {
				r.AddTag(change.Tag)
			}
		}
	})

	s.persistLocked(ctx)

	return nil
}

// AddComment appends a comment and returns its 1-based index. Anyone may
// comment; there is no permission check.
func (s *LedgerService) AddComment(ctx context.Context, index int, text string, id models.Identity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(index)
	if !ok {
		return 0, &errors.ErrRecordNotFound{Index: index + 1}
	}

	commentIndex := len(record.Comments) + 1

	s.store.Update(index, func(r *models.LinkRecord) {
		r.Comments = append(r.Comments, models.Comment{
			Text:      text,
			Nick:      id.Nick,
			CreatedAt: s.now(),
		})
	})

	metrics.LedgerCommentsTotal.Inc()
	s.persistLocked(ctx)

	return commentIndex, nil
}

func (s *LedgerService) EditComment(ctx context.Context, index, comment int, text string, id models.Identity) error {
	return s.editComment(ctx, index, comment, id, func(c *models.Comment) {
		c.Text = text
	})
}

// ReassignCommentAuthor hands a comment to another nick. Operators only.
func (s *LedgerService) ReassignCommentAuthor(ctx context.Context, index, comment int, nick string, id models.Identity) error {
	if !id.Privileged {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkComment(index, comment); err != nil {
		return err
	}

	s.store.Update(index, func(r *models.LinkRecord) {
		r.Comments[comment].Nick = nick
	})

	s.persistLocked(ctx)

	return nil
}

func (s *LedgerService) DeleteRecord(ctx context.Context, index int, id models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(index)
	if !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	if !canModify(record.Login, id) {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.store.Remove(index)
	s.persistLocked(ctx)

	return nil
}

// DeleteComment removes one comment; the record's remaining comments are
// renumbered contiguously.
func (s *LedgerService) DeleteComment(ctx context.Context, index, comment int, id models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(index)
	if !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	if comment < 0 || comment >= len(record.Comments) {
		return &errors.ErrCommentNotFound{Record: index + 1, Comment: comment + 1}
	}

	if !canModifyComment(record.Comments[comment].Nick, id) {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.store.Update(index, func(r *models.LinkRecord) {
		r.Comments = append(r.Comments[:comment], r.Comments[comment+1:]...)
	})

	s.persistLocked(ctx)

	return nil
}

func (s *LedgerService) GetRecord(index int) (*models.LinkRecord, error) {
	record, ok := s.store.Get(index)
	if !ok {
		return nil, &errors.ErrRecordNotFound{Index: index + 1}
	}

	return record, nil
}

func (s *LedgerService) GetComment(index, comment int) (*models.Comment, error) {
	record, ok := s.store.Get(index)
	if !ok {
		return nil, &errors.ErrRecordNotFound{Index: index + 1}
	}

	if comment < 0 || comment >= len(record.Comments) {
		return nil, &errors.ErrCommentNotFound{Record: index + 1, Comment: comment + 1}
	}

	c := record.Comments[comment]

	return &c, nil
}

func (s *LedgerService) Count() int {
	return s.store.Count()
}

func (s *LedgerService) List() []*models.LinkRecord {
	return s.store.List()
}

func (s *LedgerService) Backlog() []models.BacklogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.BacklogEntry, len(s.backlog))
	copy(out, s.backlog)

	return out
}

func (s *LedgerService) ActiveDay() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeDay
}

// RenderRecord builds the chat view of a record, through the cache when one
// is configured.
func (s *LedgerService) RenderRecord(ctx context.Context, index int) (string, error) {
	if s.cache != nil {
		key := fmt.Sprintf("%s:L%d", s.channel, index+1)

		if view, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			return view, nil
		}
	}

	record, ok := s.store.Get(index)
	if !ok {
		return "", &errors.ErrRecordNotFound{Index: index + 1}
	}

	view := renderRecord(index, record)

	if s.cache != nil {
		key := fmt.Sprintf("%s:L%d", s.channel, index+1)
		if err := s.cache.Set(ctx, key, view); err != nil {
			s.logger.Warn("failed to cache record view", "error", err)
		}
	}

	return view, nil
}

// Rollover archives the active day when the date has changed. It runs inside
// the same lock as Post, so two posts racing across midnight cannot both
// archive.
func (s *LedgerService) Rollover(ctx context.Context, today time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rolloverAtLocked(ctx, today)
}

func (s *LedgerService) rolloverLocked(ctx context.Context) {
	s.rolloverAtLocked(ctx, s.now())
}

func (s *LedgerService) rolloverAtLocked(ctx context.Context, today time.Time) bool {
	day := today.Format(dayLayout)
	if day == s.activeDay {
		return false
	}

	archived := s.activeDay
	records := s.store.List()

	if err := s.publisher.Publish(archived, records); err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		s.logger.Error("failed to archive day feed",
			"day", archived,
			"error", err,
		)
	}

	if len(s.backlog) == 0 || s.backlog[0].Date != day {
		s.backlog = append([]models.BacklogEntry{{
			Date: day,
			Link: s.publisher.ArchiveURL(day),
		}}, s.backlog...)
	}

	if len(s.backlog) > s.backlogMax {
		s.backlog = s.backlog[:s.backlogMax]
	}

	if err := s.publisher.PublishBacklog(s.backlog); err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		s.logger.Error("failed to publish backlog index", "error", err)
	}

	s.store.Replace(nil)
	s.activeDay = day
	metrics.LedgerRolloversTotal.Inc()

	s.persistLocked(ctx)

	s.logger.Info("day rollover",
		"archived", archived,
		"active", day,
		"records", len(records),
	)

	return true
}

func (s *LedgerService) editRecord(ctx context.Context, index int, id models.Identity, fn func(*models.LinkRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(index)
	if !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	if !canModify(record.Login, id) {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.store.Update(index, fn)
	s.persistLocked(ctx)

	return nil
}

func (s *LedgerService) editComment(ctx context.Context, index, comment int, id models.Identity, fn func(*models.Comment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(index)
	if !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	if comment < 0 || comment >= len(record.Comments) {
		return &errors.ErrCommentNotFound{Record: index + 1, Comment: comment + 1}
	}

	if !canModifyComment(record.Comments[comment].Nick, id) {
		return &errors.ErrPermissionDenied{Nick: id.Nick}
	}

	s.store.Update(index, func(r *models.LinkRecord) {
		fn(&r.Comments[comment])
	})

	s.persistLocked(ctx)

	return nil
}

func (s *LedgerService) checkComment(index, comment int) error {
	record, ok := s.store.Get(index)
	if !ok {
		return &errors.ErrRecordNotFound{Index: index + 1}
	}

	if comment < 0 || comment >= len(record.Comments) {
		return &errors.ErrCommentNotFound{Record: index + 1, Comment: comment + 1}
	}

	return nil
}

// persistLocked writes the feed documents and the snapshot. Failures are
// logged and counted; the in-memory mutation is never rolled back.
func (s *LedgerService) persistLocked(ctx context.Context) {
	err := multierr.Append(
		s.publisher.Publish(s.activeDay, s.store.List()),
		s.snapshot.Save(s.activeDay, s.store.List(), s.backlog),
	)
	if err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		s.logger.Error("ledger persistence failed", "error", err)
	}

	metrics.LedgerRecords.Set(float64(s.store.Count()))

	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.logger.Warn("failed to invalidate view cache", "error", err)
		}
	}
}

// canModify is the single authorization predicate for record mutation: the
// stored login must match, or the requester is an operator.
func canModify(recordLogin string, id models.Identity) bool {
	if id.Privileged {
		return true
	}

	return recordLogin != "" && strings.EqualFold(recordLogin, id.Login)
}

// Comments carry only the author nick, so comment ownership is nick equality.
func canModifyComment(commentNick string, id models.Identity) bool {
	if id.Privileged {
		return true
	}

	return strings.EqualFold(commentNick, id.Nick)
}

func renderRecord(index int, r *models.LinkRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "L%d: %s <%s>", index+1, r.Title, r.URL)

	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(r.Tags, " "))
	}

	fmt.Fprintf(&b, " (%s)", r.Nick)

	for i, c := range r.Comments {
		fmt.Fprintf(&b, "\nL%d.%d: %s: %s", index+1, i+1, c.Nick, c.Text)
	}

	return b.String()
}
