package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/chankeeper/chankeeper/internal/domain/models"
)

// The edit grammar addresses records positionally: L<n> is the n-th record of
// the active day (1-based on the wire), L<n>.<c> the c-th comment of that
// record, L<n>T: its tag set. Lines that match nothing fall through to the
// rest of the dispatch chain; a parse failure is never an error.
var (
	urlLineRe = regexp.MustCompile(`^(https?://\S+)(?:\s+(.*))?$`)
	editRe    = regexp.MustCompile(`^L(\d+)(T)?(?:\.(\d+))?:(.*)$`)
)

const tagsMarker = "tags:"

// Parse turns one chat line into a ledger operation. ok is false when the
// line is not part of the grammar.
func Parse(line string) (*models.Op, bool) {
	line = strings.TrimSpace(line)

	if m := editRe.FindStringSubmatch(line); m != nil {
		return parseEdit(m)
	}

	if m := urlLineRe.FindStringSubmatch(line); m != nil {
		return parsePost(m[1], m[2]), true
	}

	return nil, false
}

func parsePost(url, rest string) *models.Op {
	op := &models.Op{Kind: models.OpPost, URL: url, Record: -1, Comment: -1}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return op
	}

	if idx := strings.Index(rest, tagsMarker); idx >= 0 {
		op.Tags = splitTags(rest[idx+len(tagsMarker):])
		rest = strings.TrimSpace(rest[:idx])
	}

	op.Title = rest

	return op
}

func splitTags(s string) []string {
	var tags []string

	for _, t := range strings.Fields(s) {
		tags = append(tags, strings.ToLower(t))
	}

	return tags
}

func parseEdit(m []string) (*models.Op, bool) {
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}

	op := &models.Op{Record: index - 1, Comment: -1}
	isTags := m[2] == "T"
	rest := strings.TrimSpace(m[4])

	if m[3] != "" {
		if isTags {
			return nil, false
		}

		commentIndex, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, false
		}

		op.Comment = commentIndex - 1

		return parseCommentVerb(op, rest)
	}

	if isTags {
		op.Kind = models.OpMutateTags
		op.TagChanges = parseTagChanges(rest)

		if len(op.TagChanges) == 0 {
			return nil, false
		}

		return op, true
	}

	return parseRecordVerb(op, rest)
}

func parseRecordVerb(op *models.Op, rest string) (*models.Op, bool) {
	switch {
	case rest == "":
		op.Kind = models.OpShowRecord
	case rest == "-":
		op.Kind = models.OpDeleteRecord
	case strings.HasPrefix(rest, "|"):
		op.Kind = models.OpEditTitle
		op.Text = strings.TrimSpace(rest[1:])
	case strings.HasPrefix(rest, "="):
		op.Kind = models.OpEditURL
		op.Text = strings.TrimSpace(rest[1:])
	case strings.HasPrefix(rest, "?"):
		op.Kind = models.OpReassignAuthor
		op.Text = strings.TrimSpace(rest[1:])
	default:
		op.Kind = models.OpAddComment
		op.Text = strings.TrimSpace(rest)
	}

	return op, true
}

func parseCommentVerb(op *models.Op, rest string) (*models.Op, bool) {
	switch {
	case rest == "":
		op.Kind = models.OpShowComment
	case rest == "-":
		op.Kind = models.OpDeleteComment
	case strings.HasPrefix(rest, "?"):
		op.Kind = models.OpReassignComment
		op.Text = strings.TrimSpace(rest[1:])
	default:
		op.Kind = models.OpEditComment
		op.Text = strings.TrimSpace(rest)
	}

	return op, true
}

func parseTagChanges(rest string) []models.TagChange {
	var changes []models.TagChange

	for _, token := range strings.Fields(rest) {
		change := models.TagChange{}

		switch {
		case strings.HasPrefix(token, "+"):
			change.Tag = token[1:]
		case strings.HasPrefix(token, "-"):
			change.Tag = token[1:]
			change.Remove = true
		default:
			change.Tag = token
		}

		change.Tag = strings.ToLower(change.Tag)
		if change.Tag == "" {
			continue
		}

		changes = append(changes, change)
	}

	return changes
}
