package feed

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/pkg/atomicfile"
)

const (
	currentFileName = "links.xml"
	backlogFileName = "backlog.xml"
)

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Language    string    `xml:"language"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

// Publisher renders the active day's ledger as RSS 2.0 and writes the
// canonical current feed, the dated archive feed and the backlog index. All
// writes are temp-then-rename so feed consumers never read a partial
// document.
type Publisher struct {
	dir      string
	baseURL  string
	title    string
	language string
	host     string
	channel  string
	logger   *slog.Logger

	now func() time.Time
}

func NewPublisher(dir, baseURL, title, language, host, channel string, logger *slog.Logger) *Publisher {
	return &Publisher{
		dir:      dir,
		baseURL:  baseURL,
		title:    title,
		language: language,
		host:     host,
		channel:  channel,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish writes the current feed and the dated feed for the given day.
// Failures for the two files are combined; the caller logs and carries on.
func (p *Publisher) Publish(day string, records []*models.LinkRecord) error {
	data, err := p.render(records)
	if err != nil {
		return err
	}

	var errs error

	if err := atomicfile.Write(filepath.Join(p.dir, currentFileName), data, 0o644); err != nil {
		errs = multierr.Append(errs, err)
	}

	if err := atomicfile.Write(filepath.Join(p.dir, datedFileName(day)), data, 0o644); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// PublishBacklog rewrites the bounded index of archived days, newest first.
func (p *Publisher) PublishBacklog(entries []models.BacklogEntry) error {
	items := make([]rssItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, rssItem{
			Title:       e.Date,
			Link:        e.Link,
			Description: fmt.Sprintf("links posted in %s on %s", p.channel, e.Date),
		})
	}

	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:       p.title + " backlog",
			Link:        p.baseURL,
			Description: "archived daily link feeds for " + p.channel,
			PubDate:     p.now().Format(time.RFC1123Z),
			Language:    p.language,
			Items:       items,
		},
	}

	data, err := marshal(doc)
	if err != nil {
		return err
	}

	return atomicfile.Write(filepath.Join(p.dir, backlogFileName), data, 0o644)
}

// ArchiveURL is the public URL of a day's archived feed, used for backlog
// entries.
func (p *Publisher) ArchiveURL(day string) string {
	return strings.TrimSuffix(p.baseURL, "/") + "/" + datedFileName(day)
}

func (p *Publisher) render(records []*models.LinkRecord) ([]byte, error) {
	// Newest first: the ledger appends at the end.
	items := make([]rssItem, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		items = append(items, p.item(records[i]))
	}

	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:       p.title,
			Link:        p.baseURL,
			Description: "links posted in " + p.channel,
			PubDate:     p.now().Format(time.RFC1123Z),
			Language:    p.language,
			Items:       items,
		},
	}

	return marshal(doc)
}

func (p *Publisher) item(r *models.LinkRecord) rssItem {
	var b strings.Builder

	fmt.Fprintf(&b, "posted by %s", r.Nick)

	for _, c := range r.Comments {
		fmt.Fprintf(&b, "\n%s: %s", c.Nick, c.Text)
	}

	return rssItem{
		Title:       r.Title,
		Link:        r.URL,
		Description: b.String(),
		Author:      p.author(r.Nick),
		PubDate:     r.CreatedAt.Format(time.RFC1123Z),
		Categories:  r.Tags,
	}
}

func (p *Publisher) author(nick string) string {
	return fmt.Sprintf("%s@%s (%s)", strings.TrimPrefix(p.channel, "#"), p.host, nick)
}

func datedFileName(day string) string {
	return "links-" + day + ".xml"
}

func marshal(doc rssDoc) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling feed: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}
