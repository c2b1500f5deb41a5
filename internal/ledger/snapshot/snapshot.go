package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/pkg/atomicfile"
)

const schemaVersion = 1

// The snapshot is a versioned record-by-record schema rather than a dump of
// in-memory types, so readers of other versions (or languages) stay
// compatible.
type fileSchema struct {
	Version   int             `json:"version"`
	ActiveDay string          `json:"activeDay"`
	Records   []recordSchema  `json:"records"`
	Backlog   []backlogSchema `json:"backlog"`
}

type recordSchema struct {
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	Nick      string          `json:"nick"`
	Login     string          `json:"login"`
	Channel   string          `json:"channel"`
	CreatedAt time.Time       `json:"createdAt"`
	Comments  []commentSchema `json:"comments,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
}

type commentSchema struct {
	Text      string    `json:"text"`
	Nick      string    `json:"nick"`
	CreatedAt time.Time `json:"createdAt"`
}

type backlogSchema struct {
	Date string `json:"date"`
	Link string `json:"link"`
}

// Store persists the ledger state to one JSON file in the data directory.
type Store struct {
	path string
}

func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "ledger.json")}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Save(day string, records []*models.LinkRecord, backlog []models.BacklogEntry) error {
	out := fileSchema{
		Version:   schemaVersion,
		ActiveDay: day,
		Records:   make([]recordSchema, 0, len(records)),
		Backlog:   make([]backlogSchema, 0, len(backlog)),
	}

	for _, r := range records {
		rec := recordSchema{
			URL:       r.URL,
			Title:     r.Title,
			Nick:      r.Nick,
			Login:     r.Login,
			Channel:   r.Channel,
			CreatedAt: r.CreatedAt,
			Tags:      r.Tags,
		}
		for _, c := range r.Comments {
			rec.Comments = append(rec.Comments, commentSchema(c))
		}

		out.Records = append(out.Records, rec)
	}

	for _, e := range backlog {
		out.Backlog = append(out.Backlog, backlogSchema(e))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger snapshot: %w", err)
	}

	return atomicfile.Write(s.path, data, 0o644)
}

// Load reads the snapshot back. A missing file is an empty ledger, not an
// error; a parse failure is returned for the caller to log before starting
// empty.
func (s *Store) Load() (string, []*models.LinkRecord, []models.BacklogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, nil, nil
		}

		return "", nil, nil, fmt.Errorf("reading ledger snapshot: %w", err)
	}

	var in fileSchema
	if err := json.Unmarshal(data, &in); err != nil {
		return "", nil, nil, fmt.Errorf("parsing ledger snapshot: %w", err)
	}

	records := make([]*models.LinkRecord, 0, len(in.Records))

	for _, rec := range in.Records {
		r := &models.LinkRecord{
			URL:       rec.URL,
			Title:     rec.Title,
			Nick:      rec.Nick,
			Login:     rec.Login,
			Channel:   rec.Channel,
			CreatedAt: rec.CreatedAt,
			Tags:      rec.Tags,
		}
		for _, c := range rec.Comments {
			r.Comments = append(r.Comments, models.Comment(c))
		}

		records = append(records, r)
	}

	backlog := make([]models.BacklogEntry, 0, len(in.Backlog))
	for _, e := range in.Backlog {
		backlog = append(backlog, models.BacklogEntry(e))
	}

	return in.ActiveDay, records, backlog, nil
}
