package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chankeeper/chankeeper/internal/domain/models"
	"github.com/chankeeper/chankeeper/internal/ledger/parser"
)

func TestParse_Post(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *models.Op
	}{
		{
			name:     "bare URL",
			line:     "https://example.com/article",
			expected: &models.Op{Kind: models.OpPost, URL: "https://example.com/article", Record: -1, Comment: -1},
		},
		{
			name: "URL with title",
			line: "https://example.com/article A Great Read",
			expected: &models.Op{
				Kind: models.OpPost, URL: "https://example.com/article",
				Title: "A Great Read", Record: -1, Comment: -1,
			},
		},
		{
			name: "URL with title and tags",
			line: "https://example.com/article A Great Read tags: go Testing",
			expected: &models.Op{
				Kind: models.OpPost, URL: "https://example.com/article",
				Title: "A Great Read", Tags: []string{"go", "testing"}, Record: -1, Comment: -1,
			},
		},
		{
			name: "URL with tags only",
			line: "https://example.com/article tags: go",
			expected: &models.Op{
				Kind: models.OpPost, URL: "https://example.com/article",
				Tags: []string{"go"}, Record: -1, Comment: -1,
			},
		},
		{
			name:     "http scheme",
			line:     "http://example.com",
			expected: &models.Op{Kind: models.OpPost, URL: "http://example.com", Record: -1, Comment: -1},
		},
		{
			name:     "surrounding whitespace",
			line:     "  https://example.com  ",
			expected: &models.Op{Kind: models.OpPost, URL: "https://example.com", Record: -1, Comment: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := parser.Parse(tt.line)

			require.True(t, ok)
			assert.Equal(t, tt.expected, op)
		})
	}
}

func TestParse_RecordEdits(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *models.Op
	}{
		{
			name:     "show record",
			line:     "L1:",
			expected: &models.Op{Kind: models.OpShowRecord, Record: 0, Comment: -1},
		},
		{
			name:     "delete record",
			line:     "L2:-",
			expected: &models.Op{Kind: models.OpDeleteRecord, Record: 1, Comment: -1},
		},
		{
			name:     "delete record with spaces",
			line:     "L2: -",
			expected: &models.Op{Kind: models.OpDeleteRecord, Record: 1, Comment: -1},
		},
		{
			name:     "edit title",
			line:     "L3:|New Title",
			expected: &models.Op{Kind: models.OpEditTitle, Record: 2, Comment: -1, Text: "New Title"},
		},
		{
			name:     "edit URL",
			line:     "L1:=https://example.org/fixed",
			expected: &models.Op{Kind: models.OpEditURL, Record: 0, Comment: -1, Text: "https://example.org/fixed"},
		},
		{
			name:     "reassign author",
			line:     "L1:?alice",
			expected: &models.Op{Kind: models.OpReassignAuthor, Record: 0, Comment: -1, Text: "alice"},
		},
		{
			name:     "add comment",
			line:     "L1: nice find",
			expected: &models.Op{Kind: models.OpAddComment, Record: 0, Comment: -1, Text: "nice find"},
		},
		{
			name:     "large index",
			line:     "L42:",
			expected: &models.Op{Kind: models.OpShowRecord, Record: 41, Comment: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := parser.Parse(tt.line)

			require.True(t, ok)
			assert.Equal(t, tt.expected, op)
		})
	}
}

func TestParse_CommentEdits(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected *models.Op
	}{
		{
			name:     "show comment",
			line:     "L1.2:",
			expected: &models.Op{Kind: models.OpShowComment, Record: 0, Comment: 1},
		},
		{
			name:     "delete comment",
			line:     "L1.1:-",
			expected: &models.Op{Kind: models.OpDeleteComment, Record: 0, Comment: 0},
		},
		{
			name:     "reassign comment author",
			line:     "L1.1:?bob",
			expected: &models.Op{Kind: models.OpReassignComment, Record: 0, Comment: 0, Text: "bob"},
		},
		{
			name:     "edit comment text",
			line:     "L1.1: better wording",
			expected: &models.Op{Kind: models.OpEditComment, Record: 0, Comment: 0, Text: "better wording"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := parser.Parse(tt.line)

			require.True(t, ok)
			assert.Equal(t, tt.expected, op)
		})
	}
}

func TestParse_Tags(t *testing.T) {
	op, ok := parser.Parse("L1T: +go -web plain")

	require.True(t, ok)
	assert.Equal(t, models.OpMutateTags, op.Kind)
	assert.Equal(t, 0, op.Record)
	assert.Equal(t, []models.TagChange{
		{Tag: "go"},
		{Tag: "web", Remove: true},
		{Tag: "plain"},
	}, op.TagChanges)
}

func TestParse_TagsAreLowercased(t *testing.T) {
	op, ok := parser.Parse("L1T: +Go -WEB")

	require.True(t, ok)
	assert.Equal(t, []models.TagChange{
		{Tag: "go"},
		{Tag: "web", Remove: true},
	}, op.TagChanges)
}

func TestParse_NotPartOfGrammar(t *testing.T) {
	lines := []string{
		"",
		"hello there",
		"ftp://example.com/file",
		"L:",
		"Lx:",
		"L1",
		"L1T:",
		"L1T.2: text",
		"tell alice hi",
		"check out example.com",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			op, ok := parser.Parse(line)

			assert.False(t, ok)
			assert.Nil(t, op)
		})
	}
}
