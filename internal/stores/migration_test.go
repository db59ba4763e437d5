package stores

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-sh/margin/internal/core/plan"
)

func TestMigrateComment_CurrentSchemaPassesThrough(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "c-1",
		"range": {"start": {"line": 3, "character": 0}, "end": {"line": 5, "character": 10}},
		"body": "tighten this up",
		"author": "agent",
		"timestamp": "2026-01-15T10:30:00Z",
		"resolved": true,
		"replies": [
			{"id": "r-1", "body": "done", "author": "human", "timestamp": "2026-01-15T11:00:00Z"}
		]
	}`)

	c := migrateComment(raw, time.Now())

	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, "tighten this up", c.Body)
	assert.Equal(t, plan.AuthorAgent, c.Author)
	assert.True(t, c.Resolved)
	assert.Equal(t, 3, c.Range.Start.Line)
	assert.Equal(t, 5, c.Range.End.Line)
	assert.Equal(t, 10, c.Range.End.Character)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), c.Timestamp.UTC())

	require.Len(t, c.Replies, 1)
	assert.Equal(t, "r-1", c.Replies[0].ID)
	assert.Equal(t, plan.AuthorHuman, c.Replies[0].Author)
}

func TestMigrateComment_LegacyLineBecomesRange(t *testing.T) {
	raw := json.RawMessage(`{"id": "c-1", "line": 7, "body": "old style"}`)

	c := migrateComment(raw, time.Now())

	assert.Equal(t, 7, c.Range.Start.Line)
	assert.Equal(t, 7, c.Range.End.Line)
	assert.Equal(t, 0, c.Range.Start.Character)
	assert.Equal(t, 0, c.Range.End.Character)
}

func TestMigrateComment_Defaults(t *testing.T) {
	fallback := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing author defaults to human", func(t *testing.T) {
		c := migrateComment(json.RawMessage(`{"id": "c-1", "body": "x"}`), fallback)
		assert.Equal(t, plan.AuthorHuman, c.Author)
	})

	t.Run("missing timestamp uses fallback", func(t *testing.T) {
		c := migrateComment(json.RawMessage(`{"id": "c-1", "body": "x"}`), fallback)
		assert.Equal(t, fallback, c.Timestamp)
	})

	t.Run("missing resolved defaults to false", func(t *testing.T) {
		c := migrateComment(json.RawMessage(`{"id": "c-1", "body": "x"}`), fallback)
		assert.False(t, c.Resolved)
	})

	t.Run("missing id is synthesized", func(t *testing.T) {
		c := migrateComment(json.RawMessage(`{"body": "anonymous"}`), fallback)
		assert.NotEmpty(t, c.ID)
	})

	t.Run("two synthesized ids differ", func(t *testing.T) {
		a := migrateComment(json.RawMessage(`{"body": "one"}`), fallback)
		b := migrateComment(json.RawMessage(`{"body": "two"}`), fallback)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestMigrateComment_UnixMillisTimestamp(t *testing.T) {
	// 2025-01-01T00:00:00Z in milliseconds.
	raw := json.RawMessage(`{"id": "c-1", "body": "x", "timestamp": 1735689600000}`)

	c := migrateComment(raw, time.Now())
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), c.Timestamp.UTC())
}

func TestMigrateReply_BareStrings(t *testing.T) {
	parentTime := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{
		"id": "c-1",
		"body": "parent",
		"timestamp": "2025-03-01T09:00:00Z",
		"replies": ["first reply", "second reply"]
	}`)

	c := migrateComment(raw, time.Now())

	require.Len(t, c.Replies, 2)
	assert.Equal(t, "first reply", c.Replies[0].Body)
	assert.Equal(t, "second reply", c.Replies[1].Body)

	for _, r := range c.Replies {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, plan.AuthorHuman, r.Author)
		assert.Equal(t, parentTime, r.Timestamp.UTC())
	}
	assert.NotEqual(t, c.Replies[0].ID, c.Replies[1].ID)
}

func TestMigrateReply_MixedShapes(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "c-1",
		"body": "parent",
		"timestamp": "2025-03-01T09:00:00Z",
		"replies": [
			"bare string",
			{"id": "r-2", "body": "structured", "author": "agent", "timestamp": "2025-03-02T10:00:00Z"},
			{"body": "missing bits"}
		]
	}`)

	c := migrateComment(raw, time.Now())
	require.Len(t, c.Replies, 3)

	assert.Equal(t, "bare string", c.Replies[0].Body)

	assert.Equal(t, "r-2", c.Replies[1].ID)
	assert.Equal(t, plan.AuthorAgent, c.Replies[1].Author)

	assert.NotEmpty(t, c.Replies[2].ID)
	assert.Equal(t, plan.AuthorHuman, c.Replies[2].Author)
	assert.Equal(t, c.Timestamp, c.Replies[2].Timestamp)
}

func TestPlanStore_ReadMigratesLegacyFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewPlanStore(root, nil)

	featureDir := filepath.Join(root, "checkout")
	require.NoError(t, os.MkdirAll(featureDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(featureDir, "plan.md"), []byte("plan"), 0o644))

	legacy := `{
		"threads": [
			{"line": 4, "body": "old anchor", "replies": ["ship it"]},
			{"id": "c-2", "body": "newer", "range": {"start": {"line": 1, "character": 0}, "end": {"line": 1, "character": 5}}, "author": "agent", "timestamp": "2025-05-05T00:00:00Z"}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(featureDir, "comments.json"), []byte(legacy), 0o644))

	doc, err := store.Read(ctx, "checkout")
	require.NoError(t, err, "Read")
	require.Len(t, doc.Comments, 2)

	first := doc.Comments[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 4, first.Range.Start.Line)
	assert.Equal(t, 4, first.Range.End.Line)
	assert.Equal(t, plan.AuthorHuman, first.Author)
	assert.False(t, first.Timestamp.IsZero())
	require.Len(t, first.Replies, 1)
	assert.Equal(t, "ship it", first.Replies[0].Body)

	second := doc.Comments[1]
	assert.Equal(t, "c-2", second.ID)
	assert.Equal(t, plan.AuthorAgent, second.Author)

	// Stored order is preserved through migration.
	comments, err := store.GetComments(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, first.Range, comments[0].Range)
	assert.Equal(t, "c-2", comments[1].ID)
}
