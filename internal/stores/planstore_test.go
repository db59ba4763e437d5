package stores

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-sh/margin/internal/core/plan"
	"github.com/margin-sh/margin/internal/core/review"
)

func newTestPlanStore(t *testing.T) (*PlanStore, string) {
	t.Helper()
	root := t.TempDir()
	return NewPlanStore(root, nil), root
}

func writePlan(t *testing.T, store *PlanStore, feature, content string) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), feature, content), "Write plan")
}

func addComment(t *testing.T, store *PlanStore, feature, body string) *plan.Comment {
	t.Helper()
	r := review.Range{Start: review.Position{Line: 2}, End: review.Position{Line: 2}}
	comment, err := store.AddComment(context.Background(), feature, r, body, plan.AuthorHuman)
	require.NoError(t, err, "AddComment")
	return comment
}

func TestPlanStore_WriteAndRead(t *testing.T) {
	ctx := context.Background()
	store, root := newTestPlanStore(t)

	writePlan(t, store, "checkout", "# Plan\n\n1. do the thing\n")

	doc, err := store.Read(ctx, "checkout")
	require.NoError(t, err, "Read")
	assert.Equal(t, "# Plan\n\n1. do the thing\n", doc.Content)
	assert.Equal(t, plan.StatusPlanning, doc.Status)
	assert.Empty(t, doc.Comments)

	// plan.md and comments.json both exist on disk.
	_, err = os.Stat(filepath.Join(root, "checkout", "plan.md"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "checkout", "comments.json"))
	require.NoError(t, err)
}

func TestPlanStore_ReadNotFound(t *testing.T) {
	store, _ := newTestPlanStore(t)

	_, err := store.Read(context.Background(), "ghost")
	require.ErrorIs(t, err, plan.ErrPlanNotFound)
	assert.Contains(t, err.Error(), "no plan.md found: ghost")
}

func TestPlanStore_RewriteClearsCommentsAndApproval(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestPlanStore(t)

	writePlan(t, store, "checkout", "v1")
	addComment(t, store, "checkout", "rethink step 2")

	comment := addComment(t, store, "checkout", "and step 3")
	_, err := store.ResolveComment(ctx, "checkout", comment.ID)
	require.NoError(t, err)

	comments, err := store.GetComments(ctx, "checkout")
	require.NoError(t, err)
	require.Len(t, comments, 2)

	writePlan(t, store, "checkout", "v2")

	comments, err = store.GetComments(ctx, "checkout")
	require.NoError(t, err)
	assert.Empty(t, comments)

	approved, err := store.IsApproved(ctx, "checkout")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestPlanStore_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("missing plan", func(t *testing.T) {
		store, _ := newTestPlanStore(t)
		err := store.Approve(ctx, "ghost")
		require.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("blocked by unresolved comments", func(t *testing.T) {
		store, _ := newTestPlanStore(t)
		writePlan(t, store, "checkout", "plan")
		addComment(t, store, "checkout", "one")
		addComment(t, store, "checkout", "two")

		err := store.Approve(ctx, "checkout")
		require.ErrorIs(t, err, plan.ErrUnresolvedComments)
		assert.Contains(t, err.Error(), "2 unresolved comment(s) remain")
	})

	t.Run("approves once all comments resolved", func(t *testing.T) {
		store, root := newTestPlanStore(t)
		writePlan(t, store, "checkout", "plan")
		comment := addComment(t, store, "checkout", "one")

		_, err := store.ResolveComment(ctx, "checkout", comment.ID)
		require.NoError(t, err, "ResolveComment")

		require.NoError(t, store.Approve(ctx, "checkout"), "Approve")

		approved, err := store.IsApproved(ctx, "checkout")
		require.NoError(t, err)
		assert.True(t, approved)

		doc, err := store.Read(ctx, "checkout")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusApproved, doc.Status)

		marker, err := os.ReadFile(filepath.Join(root, "checkout", "approved"))
		require.NoError(t, err)
		assert.Contains(t, string(marker), "Approved at ")
	})

	t.Run("approving an empty comment set succeeds", func(t *testing.T) {
		store, _ := newTestPlanStore(t)
		writePlan(t, store, "checkout", "plan")
		require.NoError(t, store.Approve(ctx, "checkout"))
	})
}

func TestPlanStore_ApproveUpdatesFeatureRecord(t *testing.T) {
	ctx := context.Background()
	store, root := newTestPlanStore(t)

	// Pre-seed a feature.json with a field owned by another tool.
	featurePath := filepath.Join(root, "checkout", "feature.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(featurePath), 0o755))
	require.NoError(t, os.WriteFile(featurePath, []byte(`{"status":"planning","owner":"sam"}`), 0o644))

	writePlan(t, store, "checkout", "plan")
	require.NoError(t, store.Approve(ctx, "checkout"))

	var record map[string]any
	require.NoError(t, readJSON(featurePath, &record))
	assert.Equal(t, "approved", record["status"])
	assert.NotEmpty(t, record["approvedAt"])
	// Foreign fields survive the read-modify-write.
	assert.Equal(t, "sam", record["owner"])

	require.NoError(t, store.RevokeApproval(ctx, "checkout"))

	record = nil
	require.NoError(t, readJSON(featurePath, &record))
	assert.Equal(t, "planning", record["status"])
	_, hasApprovedAt := record["approvedAt"]
	assert.False(t, hasApprovedAt)
	assert.Equal(t, "sam", record["owner"])
}

func TestPlanStore_RevokeApprovalWithoutMarker(t *testing.T) {
	store, _ := newTestPlanStore(t)
	// Revoking when nothing is approved is a no-op, not an error.
	require.NoError(t, store.RevokeApproval(context.Background(), "checkout"))
}

func TestPlanStore_CommentLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestPlanStore(t)
	writePlan(t, store, "checkout", "plan")

	comment := addComment(t, store, "checkout", "clarify rollout")
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, plan.AuthorHuman, comment.Author)
	assert.False(t, comment.Resolved)
	assert.Equal(t, 2, comment.Range.Start.Line)

	t.Run("resolve and unresolve", func(t *testing.T) {
		resolved, err := store.ResolveComment(ctx, "checkout", comment.ID)
		require.NoError(t, err, "ResolveComment")
		assert.True(t, resolved.Resolved)

		reopened, err := store.UnresolveComment(ctx, "checkout", comment.ID)
		require.NoError(t, err, "UnresolveComment")
		assert.False(t, reopened.Resolved)
	})

	t.Run("edit bumps timestamp", func(t *testing.T) {
		edited, err := store.EditComment(ctx, "checkout", comment.ID, "clarify rollout steps")
		require.NoError(t, err, "EditComment")
		assert.Equal(t, "clarify rollout steps", edited.Body)
		assert.True(t, edited.Timestamp.After(comment.Timestamp) || edited.Timestamp.Equal(comment.Timestamp))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteComment(ctx, "checkout", comment.ID))

		comments, err := store.GetComments(ctx, "checkout")
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.ResolveComment(ctx, "checkout", "missing")
		require.ErrorIs(t, err, plan.ErrCommentNotFound)

		err = store.DeleteComment(ctx, "checkout", "missing")
		require.ErrorIs(t, err, plan.ErrCommentNotFound)
	})
}

func TestPlanStore_ReplyLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestPlanStore(t)
	writePlan(t, store, "checkout", "plan")
	comment := addComment(t, store, "checkout", "parent")

	reply, err := store.AddReply(ctx, "checkout", comment.ID, "will do", plan.AuthorAgent)
	require.NoError(t, err, "AddReply")
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, plan.AuthorAgent, reply.Author)

	edited, err := store.EditReply(ctx, "checkout", comment.ID, reply.ID, "done")
	require.NoError(t, err, "EditReply")
	assert.Equal(t, "done", edited.Body)

	_, err = store.EditReply(ctx, "checkout", comment.ID, "missing", "x")
	require.ErrorIs(t, err, plan.ErrReplyNotFound)

	require.NoError(t, store.DeleteReply(ctx, "checkout", comment.ID, reply.ID))

	comments, err := store.GetComments(ctx, "checkout")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Empty(t, comments[0].Replies)

	err = store.DeleteReply(ctx, "checkout", comment.ID, reply.ID)
	require.ErrorIs(t, err, plan.ErrReplyNotFound)
}

func TestPlanStore_GetCommentsMissingFile(t *testing.T) {
	store, _ := newTestPlanStore(t)

	comments, err := store.GetComments(context.Background(), "untouched")
	require.NoError(t, err, "GetComments")
	require.NotNil(t, comments)
	assert.Empty(t, comments)
}
