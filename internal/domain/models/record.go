package models

import (
	"strings"
	"time"
)

const DefaultTitle = "No Title"

type Comment struct {
	Text      string
	Nick      string
	CreatedAt time.Time
}

// LinkRecord is one posted URL in the active day's ledger. The URL is the
// dedup key within the day; the display index is the 1-based position in the
// day's ordered list and is not stored on the record.
type LinkRecord struct {
	URL       string
	Title     string
	Nick      string
	Login     string
	Channel   string
	CreatedAt time.Time
	Comments  []Comment
	Tags      []string
}

func (r *LinkRecord) HasTag(tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

func (r *LinkRecord) AddTag(tag string) {
	tag = strings.ToLower(tag)
	if tag == "" || r.HasTag(tag) {
		return
	}

	r.Tags = append(r.Tags, tag)
}

func (r *LinkRecord) RemoveTag(tag string) {
	tag = strings.ToLower(tag)
	for i, t := range r.Tags {
		if t == tag {
			r.Tags = append(r.Tags[:i], r.Tags[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy so that copy-on-write readers never observe a
// record mutated in place.
func (r *LinkRecord) Clone() *LinkRecord {
	c := *r
	c.Comments = make([]Comment, len(r.Comments))
	copy(c.Comments, r.Comments)
	c.Tags = make([]string, len(r.Tags))
	copy(c.Tags, r.Tags)

	return &c
}

// BacklogEntry points at one archived day's feed. Entries are kept
// newest-first and capped.
type BacklogEntry struct {
	Date string
	Link string
}

// Identity is the authorization context supplied by the chat transport.
type Identity struct {
	Nick       string
	Login      string
	Channel    string
	Privileged bool
}
